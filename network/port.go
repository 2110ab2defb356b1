package network

import "fmt"

// PortCapacityExceededError is returned when a port is outside the NAP or the NAP is full
type PortCapacityExceededError struct {
	NAPID    string
	Port     int
	Capacity int
}

func (e *PortCapacityExceededError) Error() string {
	if e.Port > 0 && e.Port <= e.Capacity {
		return fmt.Sprintf("NAP %s has no free ports (capacity %d)", e.NAPID, e.Capacity)
	}
	return fmt.Sprintf("port %d exceeds capacity %d of NAP %s", e.Port, e.Capacity, e.NAPID)
}

func (e *PortCapacityExceededError) Conflict() bool { return true }

// PortAlreadyOccupiedError is returned when another installation uses the port
type PortAlreadyOccupiedError struct {
	NAPID string
	Port  int
}

func (e *PortAlreadyOccupiedError) Error() string {
	return fmt.Sprintf("port %d of NAP %s is already occupied", e.Port, e.NAPID)
}

func (e *PortAlreadyOccupiedError) Conflict() bool { return true }

// ValidatePort checks that port can be assigned on nap given the ports already in use
func ValidatePort(nap NAP, port int, occupied []int) error {
	if port < 1 || port > nap.Capacity {
		return &PortCapacityExceededError{NAPID: nap.ID, Port: port, Capacity: nap.Capacity}
	}
	used := make(map[int]struct{}, len(occupied))
	for _, p := range occupied {
		used[p] = struct{}{}
	}
	if _, ok := used[port]; ok {
		return &PortAlreadyOccupiedError{NAPID: nap.ID, Port: port}
	}
	if len(used) >= nap.Capacity {
		return &PortCapacityExceededError{NAPID: nap.ID, Port: port, Capacity: nap.Capacity}
	}
	return nil
}

// NextFreePort returns the lowest port that is not occupied
func NextFreePort(nap NAP, occupied []int) (int, error) {
	used := make(map[int]struct{}, len(occupied))
	for _, p := range occupied {
		used[p] = struct{}{}
	}
	for port := 1; port <= nap.Capacity; port++ {
		if _, ok := used[port]; !ok {
			return port, nil
		}
	}
	return 0, &PortCapacityExceededError{NAPID: nap.ID, Port: nap.Capacity + 1, Capacity: nap.Capacity}
}

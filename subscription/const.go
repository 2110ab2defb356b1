package subscription

// State is the custom type to define the current state of a subscription
type State string

// Defining different States for a Subscription. ACTIVE is the only state a
// subscription is created in; the other two are terminal.
const (
	StateActive    State = "ACTIVE"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
)

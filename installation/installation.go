package installation

import "time"

// Status is the derived service state of an installation
type Status string

// An installation is Active while it has at least one subscription in force
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Installation links a customer to the network port that serves them
type Installation struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TenantID   string    `json:"tenantId" gorm:"not null;index"`
	CustomerID string    `json:"customerId" gorm:"not null;index"`
	Address    string    `json:"address"`
	NAPID      *string   `json:"napId" gorm:"index"`
	Port       *int      `json:"port"`
	Status     Status    `json:"status" gorm:"not null;default:INACTIVE"` // Mirrors subscriptions; only written by the subscription store
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

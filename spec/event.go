package spec

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a billing event on the message broker
type EventType string

const (
	EventSubscriptionExpiring EventType = "subscription.expiring"
	EventSubscriptionExpired  EventType = "subscription.expired"
)

// Contact is who should hear about a subscription
type Contact struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// SubscriptionEvent is published for reminders and expirations
type SubscriptionEvent struct {
	Type           EventType       `json:"type"`
	TenantID       string          `json:"tenantId"`
	SubscriptionID string          `json:"subscriptionId"`
	InstallationID string          `json:"installationId"`
	PlanID         string          `json:"planId"`
	Amount         decimal.Decimal `json:"amount"`
	EndDate        time.Time       `json:"endDate"`
	Contact        *Contact        `json:"contact,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

package subscription

import (
	"context"
	"time"
)

// TransitionFunc mutates the locked subscription in place. Returning changed
// persists the new state; returning an error aborts the transaction.
type TransitionFunc func(current *Subscription) (changed bool, err error)

// Store persists subscriptions. Every write that can change what is in force
// for an installation also recomputes the installation's status.
type Store interface {
	Create(ctx context.Context, sub *Subscription, now time.Time) error
	Get(ctx context.Context, tenantID, id string) (*Subscription, error)
	ListByInstallation(ctx context.Context, tenantID, installationID string) ([]Subscription, error)
	// Latest returns the subscription with the greatest end date, regardless of status
	Latest(ctx context.Context, tenantID, installationID string) (*Subscription, error)
	// ListDue returns ACTIVE subscriptions of every tenant whose end date is before now
	ListDue(ctx context.Context, now time.Time) ([]Subscription, error)
	// ListExpiring returns ACTIVE subscriptions of every tenant ending within [from, to]
	ListExpiring(ctx context.Context, from, to time.Time) ([]Subscription, error)
	// ListStarted returns ACTIVE subscriptions in force at now whose installation is still INACTIVE
	ListStarted(ctx context.Context, now time.Time) ([]Subscription, error)
	// SyncInstallation recomputes the installation's status at now
	SyncInstallation(ctx context.Context, tenantID, installationID string, now time.Time) error
	Transition(ctx context.Context, tenantID, id string, now time.Time, fn TransitionFunc) (*Subscription, bool, error)
}

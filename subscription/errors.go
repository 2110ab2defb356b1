package subscription

import (
	"fmt"
	"time"

	resp "github.com/fiberline/ispbill/response"
)

var (
	// ErrNotFound is returned when the subscription does not exist for the tenant
	ErrNotFound error = resp.NotFoundError("subscription not found")
	// ErrPlanNotFound is returned when subscribing to an unknown plan
	ErrPlanNotFound error = resp.NotFoundError("plan not found")
	// ErrInstallationNotFound is returned when subscribing an unknown installation
	ErrInstallationNotFound error = resp.NotFoundError("installation not found")
)

// InvalidTransitionError is returned when a state change is not allowed from the current state
type InvalidTransitionError struct {
	SubscriptionID string
	From           State
	To             State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("subscription %s cannot transition from %s to %s", e.SubscriptionID, e.From, e.To)
}

func (e *InvalidTransitionError) Conflict() bool { return true }

// SubscriptionOverlapError is returned when overlap rejection is enabled and
// the new period intersects an active subscription
type SubscriptionOverlapError struct {
	ExistingID string
	StartDate  time.Time
	EndDate    time.Time
}

func (e *SubscriptionOverlapError) Error() string {
	return fmt.Sprintf("period overlaps active subscription %s (%s to %s)",
		e.ExistingID, e.StartDate.Format(time.RFC3339), e.EndDate.Format(time.RFC3339))
}

func (e *SubscriptionOverlapError) Conflict() bool { return true }

// InactivePlanError is returned when subscribing to a plan that is no longer sold
type InactivePlanError struct {
	PlanID string
}

func (e *InactivePlanError) Error() string {
	return fmt.Sprintf("plan %s is not active", e.PlanID)
}

func (e *InactivePlanError) Invalid() bool { return true }

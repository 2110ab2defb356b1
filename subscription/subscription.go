package subscription

import (
	"time"

	"github.com/fiberline/ispbill/billing"
	"github.com/fiberline/ispbill/installation"

	"github.com/shopspring/decimal"
)

// Subscription is one prepaid period purchased for an installation
type Subscription struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	TenantID       string          `json:"tenantId" gorm:"not null;index"`
	InstallationID string          `json:"installationId" gorm:"not null;index"`
	PlanID         string          `json:"planId" gorm:"not null;index"`
	Type           billing.Type    `json:"subscriptionType" gorm:"not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric;not null"` // What the customer was charged
	StartDate      time.Time       `json:"startDate" gorm:"not null"`
	EndDate        time.Time       `json:"endDate" gorm:"not null;index"`          // Derived by billing.Calculate, never written directly
	DaysAdded      decimal.Decimal `json:"daysAdded" gorm:"type:numeric;not null"` // Derived by billing.Calculate, stored at full scale
	Status         State           `json:"status" gorm:"not null;index;default:ACTIVE"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Due reports whether an ACTIVE subscription has run past its end date
func (s *Subscription) Due(now time.Time) bool {
	return s.Status == StateActive && s.EndDate.Before(now)
}

// Expire flips a due subscription to EXPIRED. It returns false, leaving the
// record untouched, for anything that is not ACTIVE and past its end date.
func (s *Subscription) Expire(now time.Time) bool {
	if !s.Due(now) {
		return false
	}
	s.Status = StateExpired
	return true
}

// Cancel flips an ACTIVE subscription to CANCELLED. Cancelling twice is a
// no-op; cancelling an expired subscription is rejected.
func (s *Subscription) Cancel() (bool, error) {
	switch s.Status {
	case StateActive:
		s.Status = StateCancelled
		return true, nil
	case StateCancelled:
		return false, nil
	default:
		return false, &InvalidTransitionError{
			SubscriptionID: s.ID,
			From:           s.Status,
			To:             StateCancelled,
		}
	}
}

// IsCurrent reports whether the subscription provides service at now
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == StateActive && !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// Overlaps reports whether [start, end] intersects an ACTIVE subscription's period
func (s *Subscription) Overlaps(start, end time.Time) bool {
	return s.Status == StateActive && start.Before(s.EndDate) && s.StartDate.Before(end)
}

// DeriveInstallationStatus computes what an installation's status should be
// given all of its subscriptions
func DeriveInstallationStatus(subs []Subscription, now time.Time) installation.Status {
	for i := range subs {
		if subs[i].IsCurrent(now) {
			return installation.StatusActive
		}
	}
	return installation.StatusInactive
}

// latestOf returns the subscription that ends last, whatever its status
func latestOf(subs []Subscription) *Subscription {
	var latest *Subscription
	for i := range subs {
		if latest == nil || subs[i].EndDate.After(latest.EndDate) {
			latest = &subs[i]
		}
	}
	return latest
}

// chainStart is where a purchase without an explicit start begins: the end
// of the ACTIVE subscription that runs longest, or now once all have lapsed.
func chainStart(subs []Subscription, now time.Time) time.Time {
	start := now
	for i := range subs {
		if subs[i].Status == StateActive && subs[i].EndDate.After(start) {
			start = subs[i].EndDate
		}
	}
	return start
}

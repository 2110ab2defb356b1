package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/fiberline/ispbill/billing"
	"github.com/fiberline/ispbill/installation"
	"github.com/fiberline/ispbill/plan"

	extErrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlanLookup resolves a tenant's plan. *plan.Manager satisfies it.
type PlanLookup interface {
	GetByID(ctx context.Context, tenantID, id string) (*plan.Plan, error)
}

// InstallationLookup resolves a tenant's installation. *installation.Manager satisfies it.
type InstallationLookup interface {
	GetByID(ctx context.Context, tenantID, id string) (*installation.Installation, error)
}

// LifecycleOptions contains the configuration for Lifecycle
type LifecycleOptions struct {
	Store         Store
	Plans         PlanLookup
	Installations InstallationLookup
	Logger        *zap.Logger
	Now           func() time.Time
	RejectOverlap bool // Refuse periods that intersect an active subscription
}

// Lifecycle owns every state change of a subscription
type Lifecycle struct {
	LifecycleOptions
}

// Request describes a purchase. StartDate nil means "right after the active
// subscription that ends last, or now if none is running".
type Request struct {
	InstallationID string
	PlanID         string
	Type           billing.Type
	Amount         decimal.Decimal
	StartDate      *time.Time
}

// Quote is the priced result of a Request
type Quote struct {
	Plan *plan.Plan `json:"plan"`
	billing.Result
}

// NewLifecycle returns a Lifecycle backed by option.Store
func NewLifecycle(option LifecycleOptions) (*Lifecycle, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Plans == nil {
		return nil, fmt.Errorf("nil Plans is invalid")
	}
	if option.Installations == nil {
		return nil, fmt.Errorf("nil Installations is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Now == nil {
		option.Now = time.Now
	}
	return &Lifecycle{
		LifecycleOptions: option,
	}, nil
}

func (l *Lifecycle) quote(ctx context.Context, tenantID string, req Request, now time.Time) (*Quote, error) {
	p, err := l.Plans.GetByID(ctx, tenantID, req.PlanID)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot look up plan")
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}
	if !p.IsActive {
		return nil, &InactivePlanError{PlanID: p.ID}
	}

	inst, err := l.Installations.GetByID(ctx, tenantID, req.InstallationID)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot look up installation")
	}
	if inst == nil {
		return nil, ErrInstallationNotFound
	}

	start := now
	if req.StartDate != nil {
		start = *req.StartDate
	} else {
		existing, err := l.Store.ListByInstallation(ctx, tenantID, req.InstallationID)
		if err != nil {
			return nil, err
		}
		start = chainStart(existing, now)
	}

	in := billing.Input{
		PlanPrice: p.Price,
		Type:      req.Type,
		Amount:    req.Amount,
		StartDate: start,
	}
	if err := billing.Validate(in); err != nil {
		return nil, err
	}
	result, err := billing.Calculate(in)
	if err != nil {
		return nil, err
	}
	if !result.EndDate.After(result.StartDate) {
		// amount buys less than a minute of service
		return nil, &billing.InvalidCustomAmountError{Amount: req.Amount}
	}
	return &Quote{
		Plan:   p,
		Result: result,
	}, nil
}

// Preview prices req exactly as Subscribe would, without persisting anything
func (l *Lifecycle) Preview(ctx context.Context, tenantID string, req Request) (*Quote, error) {
	return l.quote(ctx, tenantID, req, l.Now())
}

// Subscribe creates an ACTIVE subscription for req on behalf of actorID
func (l *Lifecycle) Subscribe(ctx context.Context, tenantID, actorID string, req Request) (*Subscription, error) {
	now := l.Now()
	q, err := l.quote(ctx, tenantID, req, now)
	if err != nil {
		return nil, err
	}

	if l.RejectOverlap {
		existing, err := l.Store.ListByInstallation(ctx, tenantID, req.InstallationID)
		if err != nil {
			return nil, err
		}
		for i := range existing {
			if existing[i].Due(now) {
				continue
			}
			if existing[i].Overlaps(q.StartDate, q.EndDate) {
				return nil, &SubscriptionOverlapError{
					ExistingID: existing[i].ID,
					StartDate:  existing[i].StartDate,
					EndDate:    existing[i].EndDate,
				}
			}
		}
	}

	sub := &Subscription{
		TenantID:       tenantID,
		InstallationID: req.InstallationID,
		PlanID:         q.Plan.ID,
		Type:           req.Type,
		Amount:         q.AmountCharged,
		StartDate:      q.StartDate,
		EndDate:        q.EndDate,
		DaysAdded:      q.DaysAdded,
		Status:         StateActive,
		CreatedBy:      actorID,
	}
	if err := l.Store.Create(ctx, sub, now); err != nil {
		return nil, err
	}

	l.Logger.Info("Subscription created",
		zap.String("TenantID", tenantID),
		zap.String("ActorID", actorID),
		zap.String("SubscriptionID", sub.ID),
		zap.String("InstallationID", sub.InstallationID),
		zap.Time("EndDate", sub.EndDate),
	)
	return sub, nil
}

func expireAt(now time.Time) TransitionFunc {
	return func(current *Subscription) (bool, error) {
		return current.Expire(now), nil
	}
}

// Expire flips the subscription to EXPIRED if it is due. Anything else,
// including an already expired or cancelled record, is returned unchanged.
func (l *Lifecycle) Expire(ctx context.Context, tenantID, id string) (*Subscription, bool, error) {
	now := l.Now()
	return l.Store.Transition(ctx, tenantID, id, now, expireAt(now))
}

// Get returns the subscription after applying any pending expiry
func (l *Lifecycle) Get(ctx context.Context, tenantID, id string) (*Subscription, error) {
	sub, err := l.Store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return l.refresh(ctx, sub, l.Now())
}

func (l *Lifecycle) refresh(ctx context.Context, sub *Subscription, now time.Time) (*Subscription, error) {
	if !sub.Due(now) {
		return sub, nil
	}
	updated, _, err := l.Store.Transition(ctx, sub.TenantID, sub.ID, now, expireAt(now))
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListByInstallation returns every subscription of the installation, latest end date first
func (l *Lifecycle) ListByInstallation(ctx context.Context, tenantID, installationID string) ([]Subscription, error) {
	subs, err := l.Store.ListByInstallation(ctx, tenantID, installationID)
	if err != nil {
		return nil, err
	}
	now := l.Now()
	for i := range subs {
		updated, err := l.refresh(ctx, &subs[i], now)
		if err != nil {
			return nil, err
		}
		subs[i] = *updated
	}
	return subs, nil
}

// Latest returns the subscription with the greatest end date, cancelled ones included, or nil
func (l *Lifecycle) Latest(ctx context.Context, tenantID, installationID string) (*Subscription, error) {
	sub, err := l.Store.Latest(ctx, tenantID, installationID)
	if err != nil || sub == nil {
		return sub, err
	}
	return l.refresh(ctx, sub, l.Now())
}

// Cancel flips an ACTIVE subscription to CANCELLED on behalf of actorID
func (l *Lifecycle) Cancel(ctx context.Context, tenantID, actorID, id string) (*Subscription, error) {
	// persist a pending expiry first so it survives the rejected cancel
	if _, err := l.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}

	now := l.Now()
	sub, changed, err := l.Store.Transition(ctx, tenantID, id, now, func(current *Subscription) (bool, error) {
		current.Expire(now)
		return current.Cancel()
	})
	if err != nil {
		return nil, err
	}
	if changed {
		l.Logger.Info("Subscription cancelled",
			zap.String("TenantID", tenantID),
			zap.String("ActorID", actorID),
			zap.String("SubscriptionID", id),
		)
	}
	return sub, nil
}

package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/fiberline/ispbill/spec"
	"github.com/fiberline/ispbill/spec/broker"

	"go.uber.org/zap"
)

// ContactLookup resolves who to notify about an installation. *installation.Manager satisfies it.
type ContactLookup interface {
	Contact(ctx context.Context, tenantID, installationID string) (*spec.Contact, error)
}

// TaskOptions contains the configuration for Task
type TaskOptions struct {
	Store    Store
	Contacts ContactLookup
	Producer broker.Producer
	Deduper  Deduper
	Metrics  *Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Task runs the background jobs over subscriptions of every tenant:
// 1. Expire subscriptions past their end date
// 2. Remind customers whose subscription ends soon
type Task struct {
	TaskOptions
}

// SweepResult summarizes one expiry sweep
type SweepResult struct {
	Scanned   int
	Expired   int
	Activated int // Installations whose future-dated subscription came into force
	Failed    int
}

// RemindResult summarizes one reminder run
type RemindResult struct {
	Scanned int
	Sent    int
	Skipped int
	Failed  int
}

// NewTask returns a Task. Producer, Deduper and Contacts are optional.
func NewTask(option TaskOptions) (*Task, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Now == nil {
		option.Now = time.Now
	}
	return &Task{
		TaskOptions: option,
	}, nil
}

// Sweep expires every due subscription, then activates installations whose
// pre-paid period has started since the last run. Each record is handled in
// its own transaction; a failure is logged and the sweep moves on.
func (t *Task) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() {
		t.Metrics.observeSweep(time.Since(start).Seconds())
	}()

	now := t.Now()
	due, err := t.Store.ListDue(ctx, now)
	if err != nil {
		t.Logger.Error("Unable to list due subscriptions",
			zap.Error(err),
		)
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(due)}
	for i := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		logger := t.Logger.With(
			zap.String("TenantID", due[i].TenantID),
			zap.String("SubscriptionID", due[i].ID),
		)
		sub, changed, err := t.Store.Transition(ctx, due[i].TenantID, due[i].ID, now, expireAt(now))
		if err != nil {
			result.Failed++
			t.Metrics.recordSweepFailure()
			logger.Error("Unable to expire subscription",
				zap.Error(err),
			)
			continue
		}
		if !changed {
			continue
		}
		result.Expired++
		t.Metrics.recordExpired()
		logger.Info("Subscription expired",
			zap.String("InstallationID", sub.InstallationID),
			zap.Time("EndDate", sub.EndDate),
		)
		t.publish(ctx, spec.EventSubscriptionExpired, sub, now, logger)
	}

	started, err := t.Store.ListStarted(ctx, now)
	if err != nil {
		t.Logger.Error("Unable to list started subscriptions",
			zap.Error(err),
		)
		return result, err
	}
	synced := make(map[string]struct{}, len(started))
	for i := range started {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		key := started[i].TenantID + "/" + started[i].InstallationID
		if _, ok := synced[key]; ok {
			continue
		}
		synced[key] = struct{}{}
		logger := t.Logger.With(
			zap.String("TenantID", started[i].TenantID),
			zap.String("InstallationID", started[i].InstallationID),
		)
		if err := t.Store.SyncInstallation(ctx, started[i].TenantID, started[i].InstallationID, now); err != nil {
			result.Failed++
			t.Metrics.recordSweepFailure()
			logger.Error("Unable to activate installation",
				zap.Error(err),
			)
			continue
		}
		result.Activated++
		logger.Info("Installation activated",
			zap.String("SubscriptionID", started[i].ID),
			zap.Time("StartDate", started[i].StartDate),
		)
	}

	return result, nil
}

// Remind publishes one expiring event per ACTIVE subscription ending within
// the reminder window. Subscriptions are only read, never modified.
func (t *Task) Remind(ctx context.Context) (RemindResult, error) {
	now := t.Now()
	expiring, err := t.Store.ListExpiring(ctx, now, now.Add(spec.ReminderWindow))
	if err != nil {
		t.Logger.Error("Unable to list expiring subscriptions",
			zap.Error(err),
		)
		return RemindResult{}, err
	}

	result := RemindResult{Scanned: len(expiring)}
	for i := range expiring {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		sub := &expiring[i]
		logger := t.Logger.With(
			zap.String("TenantID", sub.TenantID),
			zap.String("SubscriptionID", sub.ID),
		)

		key := reminderKey(sub)
		if t.Deduper != nil {
			first, err := t.Deduper.Acquire(ctx, key, spec.ReminderTTL)
			if err != nil {
				result.Failed++
				logger.Error("Unable to check reminder state",
					zap.Error(err),
				)
				continue
			}
			if !first {
				result.Skipped++
				continue
			}
		}

		if err := t.publish(ctx, spec.EventSubscriptionExpiring, sub, now, logger); err != nil {
			result.Failed++
			if t.Deduper != nil {
				if err := t.Deduper.Release(ctx, key); err != nil {
					logger.Error("Unable to release reminder key",
						zap.Error(err),
					)
				}
			}
			continue
		}
		result.Sent++
		t.Metrics.recordReminder()
	}

	return result, nil
}

func (t *Task) publish(ctx context.Context, eventType spec.EventType, sub *Subscription, now time.Time, logger *zap.Logger) error {
	if t.Producer == nil {
		return nil
	}
	event := &spec.SubscriptionEvent{
		Type:           eventType,
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		InstallationID: sub.InstallationID,
		PlanID:         sub.PlanID,
		Amount:         sub.Amount,
		EndDate:        sub.EndDate,
		OccurredAt:     now,
	}
	if t.Contacts != nil {
		contact, err := t.Contacts.Contact(ctx, sub.TenantID, sub.InstallationID)
		if err != nil {
			logger.Warn("Unable to look up contact for event",
				zap.Error(err),
			)
		}
		event.Contact = contact
	}
	if err := t.Producer.PublishSubscriptionEvent(event); err != nil {
		logger.Error("Unable to publish subscription event",
			zap.String("EventType", string(eventType)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

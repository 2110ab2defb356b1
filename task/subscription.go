package task

import (
	"context"
	"fmt"

	"github.com/fiberline/ispbill/spec"
	"github.com/fiberline/ispbill/subscription"

	"go.uber.org/zap"
)

// SubscriptionOptions contains the configuration for the subscription jobs
type SubscriptionOptions struct {
	SubscriptionTask *subscription.Task
	SweepSchedule    string
	ReminderSchedule string
	Logger           *zap.Logger
}

// SubscriptionJobs returns the expiry sweep and reminder jobs
func SubscriptionJobs(option SubscriptionOptions) ([]Job, error) {
	if option.SubscriptionTask == nil {
		return nil, fmt.Errorf("nil SubscriptionTask is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(option.SweepSchedule) == 0 {
		option.SweepSchedule = spec.DefaultSweepSchedule
	}
	if len(option.ReminderSchedule) == 0 {
		option.ReminderSchedule = spec.DefaultReminderSchedule
	}

	logger := option.Logger
	return []Job{
		{
			Name:     spec.ExpirySweepTask,
			Schedule: option.SweepSchedule,
			Run: func(ctx context.Context) error {
				result, err := option.SubscriptionTask.Sweep(ctx)
				if err != nil {
					return err
				}
				logger.Info("Expiry sweep finished",
					zap.Int("Scanned", result.Scanned),
					zap.Int("Expired", result.Expired),
					zap.Int("Activated", result.Activated),
					zap.Int("Failed", result.Failed),
				)
				return nil
			},
		},
		{
			Name:     spec.ReminderTask,
			Schedule: option.ReminderSchedule,
			Run: func(ctx context.Context) error {
				result, err := option.SubscriptionTask.Remind(ctx)
				if err != nil {
					return err
				}
				logger.Info("Expiry reminders finished",
					zap.Int("Scanned", result.Scanned),
					zap.Int("Sent", result.Sent),
					zap.Int("Skipped", result.Skipped),
					zap.Int("Failed", result.Failed),
				)
				return nil
			},
		},
	}, nil
}

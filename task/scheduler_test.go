package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fiberline/ispbill/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSchedulerValidates(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }

	_, err := NewScheduler(SchedulerOptions{Jobs: []Job{{Name: spec.ExpirySweepTask, Schedule: "@every 1m", Run: noop}}})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerOptions{Logger: zap.NewNop()})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerOptions{
		Logger: zap.NewNop(),
		Jobs:   []Job{{Name: spec.ExpirySweepTask, Schedule: "every half hour", Run: noop}},
	})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerOptions{
		Logger: zap.NewNop(),
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: "@every 1m", Run: noop},
			{Name: spec.ExpirySweepTask, Schedule: "*/5 * * * *", Run: noop},
		},
	})
	assert.Error(t, err)

	s, err := NewScheduler(SchedulerOptions{
		Logger: zap.NewNop(),
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: spec.DefaultSweepSchedule, Run: noop},
			{Name: spec.ReminderTask, Schedule: spec.DefaultReminderSchedule, Run: noop},
		},
	})
	require.NoError(t, err)
	assert.Len(t, s.entries, 2)
}

func TestRunNow(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var runs int32
	s, err := NewScheduler(SchedulerOptions{
		Logger: zap.New(core),
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: "@every 1h", Run: func(ctx context.Context) error {
				atomic.AddInt32(&runs, 1)
				return nil
			}},
			{Name: spec.ReminderTask, Schedule: "@every 1h", Run: func(ctx context.Context) error {
				return errors.New("broker unavailable")
			}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.RunNow(spec.ExpirySweepTask))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	require.NoError(t, s.RunNow(spec.ReminderTask))
	assert.Equal(t, 1, logs.FilterMessage("Job failed").Len())

	assert.Error(t, s.RunNow("unknown"))
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32
	s, err := NewScheduler(SchedulerOptions{
		Logger: zap.NewNop(),
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: "@every 1h", Run: func(ctx context.Context) error {
				atomic.AddInt32(&runs, 1)
				close(started)
				<-release
				return nil
			}},
		},
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RunNow(spec.ExpirySweepTask)
	}()
	<-started

	require.NoError(t, s.RunNow(spec.ExpirySweepTask))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	close(release)
	<-done
}

func TestJobTimeout(t *testing.T) {
	var deadline bool
	s, err := NewScheduler(SchedulerOptions{
		Logger:  zap.NewNop(),
		Timeout: time.Minute,
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: "@every 1h", Run: func(ctx context.Context) error {
				_, deadline = ctx.Deadline()
				return nil
			}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.RunNow(spec.ExpirySweepTask))
	assert.True(t, deadline)
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(SchedulerOptions{
		Logger: zap.NewNop(),
		Jobs: []Job{
			{Name: spec.ExpirySweepTask, Schedule: "@every 1h", Run: func(ctx context.Context) error { return nil }},
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Stop()
}

func TestSubscriptionJobsValidates(t *testing.T) {
	_, err := SubscriptionJobs(SubscriptionOptions{Logger: zap.NewNop()})
	assert.Error(t, err)
}

package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fiberline/ispbill/spec"

	extErrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of background work run on a cron schedule
type Job struct {
	Name     spec.TaskType
	Schedule string
	Run      func(ctx context.Context) error
}

// SchedulerOptions contains the configuration for Scheduler
type SchedulerOptions struct {
	Jobs    []Job
	Timeout time.Duration // Upper bound of a single run, 0 means none
	Logger  *zap.Logger
}

// Scheduler runs Jobs with robfig/cron. A job that is still running when its
// next tick arrives is skipped rather than stacked.
type Scheduler struct {
	SchedulerOptions
	cron *cron.Cron

	mu      sync.RWMutex
	ctx     context.Context
	entries map[spec.TaskType]cron.Job
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler validates every schedule and registers the jobs
func NewScheduler(option SchedulerOptions) (*Scheduler, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(option.Jobs) == 0 {
		return nil, fmt.Errorf("empty Jobs is invalid")
	}

	logger := zapCronLogger{logger: option.Logger}
	s := &Scheduler{
		SchedulerOptions: option,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
		),
		ctx:     context.Background(),
		entries: make(map[spec.TaskType]cron.Job),
	}

	for _, job := range option.Jobs {
		if job.Run == nil {
			return nil, fmt.Errorf("nil Run of job %s is invalid", job.Name)
		}
		if _, ok := s.entries[job.Name]; ok {
			return nil, fmt.Errorf("duplicate job %s", job.Name)
		}
		job := job
		wrapped := cron.NewChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		).Then(cron.FuncJob(func() {
			s.run(job)
		}))
		if _, err := s.cron.AddJob(job.Schedule, wrapped); err != nil {
			return nil, extErrors.Wrapf(err, "Cannot schedule job %s", job.Name)
		}
		s.entries[job.Name] = wrapped
	}

	return s, nil
}

func (s *Scheduler) run(job Job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	logger := s.Logger.With(zap.String("Job", string(job.Name)))
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error("Job failed",
			zap.Duration("Elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	logger.Debug("Job finished",
		zap.Duration("Elapsed", time.Since(start)),
	)
}

// Start begins running jobs on their schedules until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.Logger.Info("Scheduler started",
		zap.Int("Jobs", len(s.entries)),
	)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop prevents new runs and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow runs the named job once in the calling goroutine. It is skipped if
// the same job is already running.
func (s *Scheduler) RunNow(name spec.TaskType) error {
	s.mu.RLock()
	job, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	job.Run()
	return nil
}

// zapCronLogger routes cron's own logging to zap
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

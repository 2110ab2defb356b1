package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiberline/ispbill/broker"
	"github.com/fiberline/ispbill/config"
	"github.com/fiberline/ispbill/db"
	"github.com/fiberline/ispbill/installation"
	"github.com/fiberline/ispbill/plan"
	"github.com/fiberline/ispbill/spec"
	"github.com/fiberline/ispbill/subscription"
	"github.com/fiberline/ispbill/task"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var err error

	once := flag.String("once", "", "run the named job (expiry_sweep or expiry_reminder) once and exit")
	seed := flag.Bool("seed", false, "seed SEED_TENANT's plan catalog from SEED_PLAN_FILE before starting")
	flag.Parse()

	// Determine running environment and initialize structural logger
	env := config.CurrentEnvironment()
	if env == config.EnvProduction {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: string(env),
		Release:     Version,
		Debug:       env == config.EnvDevelopment,
	}); err != nil {
		log.Fatalf("Cannot initialize sentry: %v\n", err)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "task",
		},
	}, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		logger.Fatal("Cannot attach sentry to logger",
			zap.Error(err),
		)
	}
	logger = zapsentry.AttachCoreToLogger(core, logger)

	defer logger.Sync()

	cfg, err := config.Load(config.DotFile(env))
	if err != nil {
		logger.Fatal("Cannot load configurations",
			zap.Error(err),
		)
	}
	if err := cfg.RequireTask(); err != nil {
		logger.Fatal("Incomplete configurations",
			zap.Error(err),
		)
	}

	// Initialize backend connections
	db, err := db.New(db.Options{
		URI:    cfg.PostgresURI,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURI,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping().Result(); err != nil {
		logger.Fatal("Cannot connect to Redis",
			zap.Error(err),
		)
	}
	defer rdb.Close()

	amqpBroker, err := broker.NewAMQPBroker(cfg.AMQPURI)
	if err != nil {
		logger.Fatal("Cannot connect to Broker",
			zap.Error(err),
		)
	}
	defer amqpBroker.Close()

	if *seed {
		planManager, err := plan.NewManager(logger, db)
		if err != nil {
			logger.Fatal("Cannot initialize PlanManager",
				zap.Error(err),
			)
		}
		n, err := planManager.Seed(context.Background(), cfg.SeedTenant, cfg.SeedPlanFile)
		if err != nil {
			logger.Fatal("Cannot seed plans",
				zap.Error(err),
			)
		}
		logger.Info("Plans seeded",
			zap.String("TenantID", cfg.SeedTenant),
			zap.Int("Count", n),
		)
	}

	installationManager, err := installation.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize InstallationManager",
			zap.Error(err),
		)
	}

	subscriptionManager, err := subscription.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}

	deduper, err := subscription.NewRedisDeduper(rdb, "ispbill:")
	if err != nil {
		logger.Fatal("Cannot initialize reminder deduper",
			zap.Error(err),
		)
	}

	subscriptionTask, err := subscription.NewTask(subscription.TaskOptions{
		Store:    subscriptionManager,
		Contacts: installationManager,
		Producer: amqpBroker,
		Deduper:  deduper,
		Metrics:  subscription.NewMetrics(nil),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Cannot get subscription task",
			zap.Error(err),
		)
	}

	jobs, err := task.SubscriptionJobs(task.SubscriptionOptions{
		SubscriptionTask: subscriptionTask,
		SweepSchedule:    cfg.SweepSchedule,
		ReminderSchedule: cfg.ReminderSchedule,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("Cannot build subscription jobs",
			zap.Error(err),
		)
	}

	scheduler, err := task.NewScheduler(task.SchedulerOptions{
		Jobs:    jobs,
		Timeout: time.Minute * 20,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize scheduler",
			zap.Error(err),
		)
	}

	if len(*once) > 0 {
		if err := scheduler.RunNow(spec.TaskType(*once)); err != nil {
			logger.Fatal("Cannot run job",
				zap.Error(err),
			)
		}
		return
	}

	metricsSrv := &http.Server{
		Handler: promhttp.Handler(),
		Addr:    cfg.ListenAddr,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped unexpectedly",
				zap.Error(err),
			)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)

	logger.Info("Billing task started",
		zap.String("SweepSchedule", cfg.SweepSchedule),
		zap.String("ReminderSchedule", cfg.ReminderSchedule),
	)

	<-c
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)
}

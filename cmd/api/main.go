package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiberline/ispbill/auth"
	"github.com/fiberline/ispbill/config"
	"github.com/fiberline/ispbill/customer"
	"github.com/fiberline/ispbill/db"
	"github.com/fiberline/ispbill/installation"
	"github.com/fiberline/ispbill/network"
	"github.com/fiberline/ispbill/plan"
	"github.com/fiberline/ispbill/report"
	"github.com/fiberline/ispbill/subscription"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
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
			"component": "api",
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
	if err := cfg.RequireAPI(); err != nil {
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

	authenticator, err := auth.New(auth.Options{
		Logger:        logger,
		JWTSigningKey: cfg.JWTSigningKey,
		TokenTTL:      cfg.TokenTTL,
		Rules:         auth.DefaultRules,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Auth",
			zap.Error(err),
		)
	}

	planManager, err := plan.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize PlanManager",
			zap.Error(err),
		)
	}

	customerManager, err := customer.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize CustomerManager",
			zap.Error(err),
		)
	}

	networkManager, err := network.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize NetworkManager",
			zap.Error(err),
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

	reportManager, err := report.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize ReportManager",
			zap.Error(err),
		)
	}

	lifecycle, err := subscription.NewLifecycle(subscription.LifecycleOptions{
		Store:         subscriptionManager,
		Plans:         planManager,
		Installations: installationManager,
		Logger:        logger,
		RejectOverlap: cfg.RejectOverlap,
	})
	if err != nil {
		logger.Fatal("Cannot initialize subscription Lifecycle",
			zap.Error(err),
		)
	}

	planRouter, err := plan.NewService(plan.Options{
		PlanManager: planManager,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Plan Service Router",
			zap.Error(err),
		)
	}

	customerRouter, err := customer.NewService(customer.Options{
		CustomerManager: customerManager,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Customer Service Router",
			zap.Error(err),
		)
	}

	networkRouter, err := network.NewService(network.Options{
		NetworkManager: networkManager,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Network Service Router",
			zap.Error(err),
		)
	}

	installationRouter, err := installation.NewService(installation.Options{
		InstallationManager: installationManager,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Installation Service Router",
			zap.Error(err),
		)
	}

	subscriptionRouter, err := subscription.NewService(subscription.ServiceOptions{
		Lifecycle: lifecycle,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Subscription Service Router",
			zap.Error(err),
		)
	}

	reportRouter, err := report.NewService(report.Options{
		Reporter: reportManager,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Report Service Router",
			zap.Error(err),
		)
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(middleware.RealIP)
	rootRouter.Use(middleware.Recoverer)
	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	rootRouter.Handle("/metrics", promhttp.Handler())
	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	installationRoutes := installationRouter.Router()
	subscriptionRouter.InstallationRoutes(installationRoutes)

	rootRouter.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware())

		r.Mount("/plans", planRouter.Router())
		r.Mount("/customers", customerRouter.Router())
		r.Mount("/network", networkRouter.Router())
		r.Mount("/installations", installationRoutes)
		r.Mount("/subscriptions", subscriptionRouter.Router())
		r.Mount("/reports", reportRouter.Router())
	})

	srv := &http.Server{
		Handler:      rootRouter,
		Addr:         cfg.ListenAddr,
		ReadTimeout:  time.Second * 15,
		WriteTimeout: time.Second * 30,
	}

	go func() {
		logger.Info("API server started",
			zap.String("Addr", cfg.ListenAddr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server stopped unexpectedly",
				zap.Error(err),
			)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Cannot shutdown API server gracefully",
			zap.Error(err),
		)
	}
}

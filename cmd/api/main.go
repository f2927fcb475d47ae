package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/launchbase-io/launchbase-backend/api/controllers"
	"github.com/launchbase-io/launchbase-backend/api/controllers/webhooks"
	"github.com/launchbase-io/launchbase-backend/api/routes"
	"github.com/launchbase-io/launchbase-backend/internal/billing"
	"github.com/launchbase-io/launchbase-backend/internal/memberships"
	"github.com/launchbase-io/launchbase-backend/internal/organizations"
	"github.com/launchbase-io/launchbase-backend/internal/plans"
	"github.com/launchbase-io/launchbase-backend/internal/subscriptions"
	"github.com/launchbase-io/launchbase-backend/internal/users"
	webhooksvc "github.com/launchbase-io/launchbase-backend/internal/webhooks/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/auth/session"
	"github.com/launchbase-io/launchbase-backend/pkg/config"
	"github.com/launchbase-io/launchbase-backend/pkg/db"
	"github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	"github.com/launchbase-io/launchbase-backend/pkg/metrics"
	"github.com/launchbase-io/launchbase-backend/pkg/migrate"
	"github.com/launchbase-io/launchbase-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	providerClient, err := lemonsqueezy.NewClient(context.Background(), cfg.LemonSqueezy, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lemon squeezy client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	billingRepo := billing.NewRepository(dbClient.DB())
	planRepo := plans.NewRepository(dbClient.DB())
	membershipsRepo := memberships.NewRepository(dbClient.DB())
	organizationsRepo := organizations.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		BillingRepo: billingRepo,
		PlanRepo:    planRepo,
		Memberships: membershipsRepo,
		Provider:    providerClient,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	organizationService, err := organizations.NewService(organizations.ServiceParams{
		OrganizationRepo: organizationsRepo,
		Memberships:      membershipsRepo,
		Users:            usersRepo,
		BillingRepo:      billingRepo,
		PlanRepo:         planRepo,
		Provider:         providerClient,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create organization service", err)
		os.Exit(1)
	}

	webhookService, err := webhooksvc.NewService(webhooksvc.ServiceParams{
		BillingRepo:       billingRepo,
		TransactionRunner: dbClient,
		Metrics:           webhookMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookController, err := webhooks.NewLemonSqueezyController(providerClient.SigningSecret(), webhookService, webhookMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook controller", err)
		os.Exit(1)
	}

	router := routes.New(routes.Params{
		Config:      cfg,
		Logger:      logg,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Memberships: membershipsRepo,
		Registry:    registry,

		Health:        controllers.NewHealthController(cfg.App.Env, dbClient, redisClient, logg),
		Plans:         controllers.NewPlansController(planRepo, logg),
		Session:       controllers.NewSessionController(cfg.JWT, sessionManager, usersRepo, logg),
		Organizations: controllers.NewOrganizationsController(organizationService, logg),
		Billing:       controllers.NewBillingController(subscriptionService, logg),
		Webhooks:      webhookController,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

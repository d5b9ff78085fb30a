// Package main is the entrypoint for the creatorlink API server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/creatorlink/creatorlink/internal/admin"
	"github.com/creatorlink/creatorlink/internal/analytics"
	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/config"
	"github.com/creatorlink/creatorlink/internal/handler"
	"github.com/creatorlink/creatorlink/internal/invitation"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/negotiation"
	"github.com/creatorlink/creatorlink/internal/provisioning"
	"github.com/creatorlink/creatorlink/internal/repository"
	"github.com/creatorlink/creatorlink/internal/rpc"
	"github.com/creatorlink/creatorlink/internal/server"
	"github.com/creatorlink/creatorlink/internal/tracking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	adminDB, err := admin.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open admin database handle",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer adminDB.Close()

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewPrometheus()
	procedures := rpc.NewPostgresCaller(repo.Pool())

	trackingService := tracking.NewService(repo, cacheClient, tracking.Config{
		BaseURL:           cfg.BaseURL,
		QRServiceURL:      cfg.QRServiceURL,
		VisitorHashSecret: cfg.VisitorHashSecret,
	}, recorder, logger)

	invitationOpts := invitation.Options{
		Locker:  cacheClient,
		LockTTL: cfg.AcceptLockTTL,
	}

	var worker *provisioning.Worker
	if cfg.ProvisioningEnabled {
		invitationOpts.Enqueuer = provisioning.NewPublisher(cacheClient.Client(), logger, recorder)
		worker = provisioning.NewWorker(cacheClient.Client(), trackingService, logger, provisioning.NewConsumerID(), recorder)
		worker.SetMaxAttempts(cfg.ProvisioningMaxAttempts)
		worker.SetClaimIdle(cfg.ProvisioningClaimIdle)
	}

	invitationService := invitation.NewService(procedures, repo, trackingService, invitationOpts, recorder, logger)
	negotiationService := negotiation.NewService(procedures, repo, cfg.NegotiationMaxRounds, recorder, logger)
	analyticsService := analytics.NewService(repo, logger)
	adminService := admin.NewService(admin.NewPostgresStore(adminDB), cfg.ProtectedEmailDomain, recorder, logger)

	router := server.NewRouter(server.Handlers{
		Health: handler.NewHealthHandler(
			handler.Dependency{Name: "postgres", Checker: repo},
			handler.Dependency{Name: "redis", Checker: cacheClient},
			handler.Dependency{Name: "postgres_admin", Checker: handler.PingFunc(adminDB.PingContext)},
		),
		Tracking:    handler.NewTrackingHandler(trackingService, logger),
		Admin:       handler.NewAdminHandler(adminService, logger),
		Invitation:  handler.NewInvitationHandler(invitationService, logger),
		Negotiation: handler.NewNegotiationHandler(negotiationService, logger),
		Analytics:   handler.NewAnalyticsHandler(analyticsService, logger),
		Metrics:     recorder.Handler(),
	}, server.RouterConfig{
		Logger:             logger,
		Verifier:           auth.NewVerifier(cfg.JWTSecret),
		Limiter:            cacheClient,
		RateLimitEnabled:   cfg.RateLimitRedirectEnabled,
		RateLimitRPS:       cfg.RateLimitRedirectRPS,
		RateLimitBurst:     cfg.RateLimitRedirectBurst,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		IsDevelopment:      cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if worker != nil {
		srv.Go(ctx, "provisioning_worker", worker.Run)
		srv.OnShutdown("provisioning_worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"provisioning_enabled", cfg.ProvisioningEnabled,
		"negotiation_max_rounds", cfg.NegotiationMaxRounds,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/promogate/promogate/internal/adapter/api"
	"github.com/promogate/promogate/internal/adapter/api/handler"
	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/adapter/notifier"
	"github.com/promogate/promogate/internal/adapter/repository/postgres"
	redisrepo "github.com/promogate/promogate/internal/adapter/repository/redis"
	"github.com/promogate/promogate/internal/adapter/storage"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/pkg/config"
	"github.com/promogate/promogate/internal/pkg/logger"
	"github.com/promogate/promogate/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewPlatformMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	deps := map[string]api.DepCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	// --- Rate limit counter store (optional; decisions fail open without it) ---
	var rateStore domain.RateLimitStore
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, rate limiting starts indeterminate", "error", err)
		}
		rateStore = redisrepo.NewRateLimitStore(redisClient, logger)
		deps["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn("no redis configured, rate limiting is disabled (fail-open)")
	}

	// --- Optional side channels: object storage and email ---
	var files domain.FileStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			BaseURL:   cfg.S3BaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		files = s3Store
	}

	var grantNotifier domain.Notifier
	if cfg.PostmarkServerToken != "" {
		grantNotifier, err = notifier.NewPostmarkNotifier(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.SenderEmail)
		if err != nil {
			logger.Error("failed to initialize email notifier", "error", err)
			os.Exit(1)
		}
	} else {
		grantNotifier = notifier.NewLogNotifier(logger)
	}

	// --- Repositories ---
	directory := postgres.NewTenantDirectory(db)
	newScope := postgres.NewScopeFactory(db)
	staffKeys := postgres.NewStaffKeyRepository(db, logger, cfg.StaffKeyCacheTTL, m)

	// --- Use Cases ---
	resolver := usecase.NewTenantResolver(directory, logger, cfg.TenantCacheTTL, m)
	limiter := usecase.NewRateLimiter(rateStore, logger, m)
	catalog := usecase.NewCatalogUseCase(newScope)
	survey := usecase.NewSurveyUseCase(newScope, logger)
	issue := usecase.NewIssueGrantUseCase(newScope, grantNotifier, logger, m, cfg.CodeLength, cfg.GrantTTL)
	redeem := usecase.NewRedeemGrantUseCase(newScope, logger, m)
	maxUpload := cfg.MaxUploadMiB << 20
	admin := usecase.NewAdminUseCase(directory, newScope, files, logger, maxUpload)

	// --- HTTP Servers ---
	issuePolicy := domain.RatePolicy{MaxRequests: cfg.IssueRateLimit, Window: cfg.IssueRateWindow}
	publicHandler := handler.NewPublicHandler(catalog, survey, issue, redeem, limiter, issuePolicy, logger)
	adminHandler := handler.NewAdminHandler(directory, admin, resolver, logger, maxUpload)

	publicServer := &http.Server{
		Addr:         cfg.PublicAddr,
		Handler:      api.NewPublicRouter(cfg, logger, resolver, limiter, publicHandler),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(logger, staffKeys, adminHandler, deps),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("starting public server", "addr", publicServer.Addr)
		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("public server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := publicServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("public server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

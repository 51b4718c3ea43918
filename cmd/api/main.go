package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-analytics/internal/api/http"
	"github.com/spec-kit/support-analytics/internal/api/http/handlers"
	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/cache"
	"github.com/spec-kit/support-analytics/internal/config"
	"github.com/spec-kit/support-analytics/internal/events"
	"github.com/spec-kit/support-analytics/internal/observability"
	"github.com/spec-kit/support-analytics/internal/persistence"
	"github.com/spec-kit/support-analytics/internal/repository"
	"github.com/spec-kit/support-analytics/internal/service"
	"github.com/spec-kit/support-analytics/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	// The aggregation backend is fixed at startup: either the store computes
	// date_trunc buckets, or tickets are scanned and bucketed in-process.
	var analyticsRepo repository.AnalyticsRepository
	if cfg.Analytics.NativeTimeTruncation {
		analyticsRepo = repository.NewPostgresAnalyticsRepository(pool)
		logger.Info("analytics backend: native time truncation")
	} else {
		analyticsRepo = repository.NewScanAnalyticsRepository(ticketRepo)
		logger.Info("analytics backend: application-layer bucketing")
	}

	var redis *persistence.Redis
	var cacheStore cache.Store
	if cfg.Cache.Enabled {
		if cfg.Redis.Addr != "" {
			redis = persistence.NewRedis(cfg.Redis, logger)
			defer redis.Close()
			cacheStore = cache.NewRedisStore(redis.Client)
		} else {
			cacheStore = cache.NewMemoryStore()
			logger.Info("analytics cache: in-process store")
		}
	} else {
		logger.Info("analytics cache disabled")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo, orgRepo)
	ticketService := service.NewTicketService(ticketRepo, dispatcher)
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		Repo:      analyticsRepo,
		Cache:     cacheStore,
		Logger:    logger,
		Metrics:   metrics,
		TTL:       cfg.Cache.TTL(),
		TrendDays: cfg.Analytics.TrendDays,
	})

	if cacheStore != nil {
		invalidator := cache.NewInvalidator(cacheStore, logger)
		invalidator.Subscribe(dispatcher)
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService, metrics),
		AuthMiddleware: authMiddleware,
	})

	var refresh *worker.RefreshWorker
	if cfg.Analytics.RefreshEnabled && cacheStore != nil {
		refresh = worker.NewRefreshWorker(analyticsService, orgRepo, logger, cfg.Analytics)
		if err := refresh.Start(); err != nil {
			logger.Fatal("failed to start refresh worker", zap.Error(err))
		}
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if refresh != nil {
		refresh.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/support-analytics/internal/config"
	"github.com/spec-kit/support-analytics/internal/repository"
	"github.com/spec-kit/support-analytics/internal/service"
)

// RefreshWorker periodically rewarms dashboard caches for active
// organizations so the first request after a TTL expiry does not pay the
// computation cost.
type RefreshWorker struct {
	analytics *service.AnalyticsService
	orgs      repository.OrganizationRepository
	logger    *zap.Logger
	schedule  string
	rangeDays int
	cron      *cron.Cron
}

// NewRefreshWorker constructs the worker.
func NewRefreshWorker(analyticsService *service.AnalyticsService, orgs repository.OrganizationRepository, logger *zap.Logger, cfg config.AnalyticsConfig) *RefreshWorker {
	rangeDays := cfg.TrendDays
	if rangeDays <= 0 {
		rangeDays = 30
	}
	return &RefreshWorker{
		analytics: analyticsService,
		orgs:      orgs,
		logger:    logger,
		schedule:  cfg.RefreshCron,
		rangeDays: rangeDays,
	}
}

// Start registers the schedule and launches the cron loop.
func (w *RefreshWorker) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, w.refreshAll); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("dashboard refresh worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running refresh to finish.
func (w *RefreshWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

func (w *RefreshWorker) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	orgs, err := w.orgs.ListActive(ctx)
	if err != nil {
		w.logger.Error("refresh: list organizations failed", zap.Error(err))
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -w.rangeDays)
	refreshed := 0
	for _, org := range orgs {
		// Drop the stale entry first so the warm call recomputes.
		if _, err := w.analytics.InvalidateCache(ctx, org.ID, "dashboard"); err != nil {
			w.logger.Warn("refresh: invalidate failed", zap.Int64("organization_id", org.ID), zap.Error(err))
		}
		q := service.RangeQuery{
			OrganizationID: org.ID,
			Start:          start,
			End:            end,
			UseCache:       true,
		}
		if _, err := w.analytics.GetDashboardMetrics(ctx, q, true); err != nil {
			w.logger.Warn("refresh: dashboard warm failed", zap.Int64("organization_id", org.ID), zap.Error(err))
			continue
		}
		refreshed++
	}
	w.logger.Info("dashboard caches rewarmed", zap.Int("organizations", refreshed))
}

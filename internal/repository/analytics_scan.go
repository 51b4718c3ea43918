package repository

import (
	"context"
	"time"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/domain"
)

// TicketSource yields the org- and date-scoped tickets the scan backend
// aggregates over. The Postgres ticket repository satisfies it; tests use an
// in-memory implementation.
type TicketSource interface {
	InRange(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) ([]domain.Ticket, error)
}

// scanAnalyticsRepository is the fallback backend for stores without native
// time truncation: it pulls the bounded record set and computes every
// operation at the application layer with the pure analytics functions.
// Bucket boundaries match the Postgres backend exactly, including quarters,
// which here genuinely roll three monthly groups into one bucket.
type scanAnalyticsRepository struct {
	source TicketSource
}

// NewScanAnalyticsRepository builds the application-layer backend.
func NewScanAnalyticsRepository(source TicketSource) AnalyticsRepository {
	return &scanAnalyticsRepository{source: source}
}

func (r *scanAnalyticsRepository) Count(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (int64, error) {
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(tickets)), nil
}

func (r *scanAnalyticsRepository) TimeSeries(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, granularity analytics.Granularity, filter analytics.Filter) ([]analytics.Point, error) {
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return nil, err
	}
	return analytics.SeriesFromTickets(tickets, metric, granularity)
}

func (r *scanAnalyticsRepository) Summary(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) (analytics.Summary, error) {
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.SummaryFromTickets(tickets, metric)
}

func (r *scanAnalyticsRepository) Distribution(ctx context.Context, organizationID int64, field analytics.Field, start, end time.Time, filter analytics.Filter) (map[string]int64, error) {
	if _, err := analytics.ParseField(string(field)); err != nil {
		return nil, err
	}
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return nil, err
	}
	return analytics.DistributionFromTickets(tickets, field), nil
}

func (r *scanAnalyticsRepository) DurationSamples(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) ([]float64, error) {
	if !metric.IsDuration() {
		return nil, analytics.ErrUnsupportedMetric
	}
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return nil, err
	}
	return analytics.DurationSamplesFromTickets(tickets, metric), nil
}

func (r *scanAnalyticsRepository) SentimentBreakdown(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (map[string]int64, error) {
	tickets, err := r.source.InRange(ctx, organizationID, start, end, filter)
	if err != nil {
		return nil, err
	}
	return analytics.SentimentBreakdownFromTickets(tickets), nil
}

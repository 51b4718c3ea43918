package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/cache"
	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/observability"
	"github.com/spec-kit/support-analytics/internal/repository"
)

// DefaultPercentiles are the percentile ranks served when a caller does not
// request specific ones.
var DefaultPercentiles = []int{50, 95, 99}

// AnalyticsService answers the analytics query surface cache-aside: derive a
// deterministic key, look it up, compute on miss, store with TTL. The cache
// store is injected and optional; without it (or when it errors) every call
// degrades to direct computation. Concurrent misses for one key are deduped
// with singleflight; that is a throughput concern only, recomputation is
// idempotent.
type AnalyticsService struct {
	repo      repository.AnalyticsRepository
	cache     cache.Store
	logger    *zap.Logger
	metrics   *observability.Metrics
	ttl       time.Duration
	trendDays int
	flight    singleflight.Group
}

// AnalyticsDependencies bundles collaborators for the analytics service.
type AnalyticsDependencies struct {
	Repo      repository.AnalyticsRepository
	Cache     cache.Store
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	TTL       time.Duration
	TrendDays int
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	trendDays := deps.TrendDays
	if trendDays <= 0 {
		trendDays = 30
	}
	return &AnalyticsService{
		repo:      deps.Repo,
		cache:     deps.Cache,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		ttl:       ttl,
		trendDays: trendDays,
	}
}

// RangeQuery scopes a query to one organization and a half-open date range.
// UseCache=false bypasses the orchestrator entirely for consistency-critical
// callers.
type RangeQuery struct {
	OrganizationID int64
	Start          time.Time
	End            time.Time
	Filter         analytics.Filter
	UseCache       bool
}

func (q RangeQuery) params() map[string]string {
	return map[string]string{
		"start":   q.Start.UTC().Format(time.RFC3339Nano),
		"end":     q.End.UTC().Format(time.RFC3339Nano),
		"filters": q.Filter.Canonical(),
	}
}

// SeriesQuery parameterizes a time-series request.
type SeriesQuery struct {
	RangeQuery
	Metric      analytics.MetricType
	Granularity analytics.Granularity
}

// AggregationQuery parameterizes a multi-metric aggregation request.
type AggregationQuery struct {
	RangeQuery
	Metrics     []analytics.MetricType
	Granularity analytics.Granularity
	GroupBy     []analytics.Field
}

// DistributionQuery parameterizes a field-distribution request.
type DistributionQuery struct {
	RangeQuery
	Field analytics.Field
}

// PercentileQuery parameterizes a duration-percentile request.
type PercentileQuery struct {
	RangeQuery
	Metric      analytics.MetricType
	Percentiles []int
}

// GetTimeSeries returns the bucketed series for one metric with summary
// statistics over the returned points.
func (s *AnalyticsService) GetTimeSeries(ctx context.Context, q SeriesQuery) (*analytics.TimeSeriesResult, error) {
	compute := func() (any, error) {
		points, err := s.repo.TimeSeries(ctx, q.OrganizationID, q.Metric, q.Start, q.End, q.Granularity, q.Filter)
		if err != nil {
			return nil, err
		}
		result := &analytics.TimeSeriesResult{
			MetricType:  q.Metric,
			Granularity: q.Granularity,
			StartDate:   q.Start.UTC(),
			EndDate:     q.End.UTC(),
			DataPoints:  points,
		}
		for i, point := range points {
			result.TotalCount += point.Count
			result.AverageValue += point.Value
			if i == 0 || point.Value < result.MinValue {
				result.MinValue = point.Value
			}
			if i == 0 || point.Value > result.MaxValue {
				result.MaxValue = point.Value
			}
		}
		if len(points) > 0 {
			result.AverageValue /= float64(len(points))
		}
		return result, nil
	}

	params := q.params()
	params["gran"] = string(q.Granularity)
	key := cache.Key(cache.OpTimeSeries, q.OrganizationID, string(q.Metric), params)

	var out analytics.TimeSeriesResult
	if err := s.getOrCompute(ctx, cache.OpTimeSeries, key, q.UseCache, &out, compute); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAggregation computes one result per requested metric, with optional
// group-by breakdowns and an embedded series.
func (s *AnalyticsService) GetAggregation(ctx context.Context, q AggregationQuery) ([]analytics.AggregationResult, error) {
	results := make([]analytics.AggregationResult, 0, len(q.Metrics))
	for _, metric := range q.Metrics {
		metric := metric
		compute := func() (any, error) {
			return s.computeAggregation(ctx, q, metric)
		}

		params := q.params()
		params["gran"] = string(q.Granularity)
		params["group_by"] = joinFields(q.GroupBy)
		key := cache.Key(cache.OpAggregation, q.OrganizationID, string(metric), params)

		var out analytics.AggregationResult
		if err := s.getOrCompute(ctx, cache.OpAggregation, key, q.UseCache, &out, compute); err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

func (s *AnalyticsService) computeAggregation(ctx context.Context, q AggregationQuery, metric analytics.MetricType) (*analytics.AggregationResult, error) {
	summary, err := s.repo.Summary(ctx, q.OrganizationID, metric, q.Start, q.End, q.Filter)
	if err != nil {
		return nil, err
	}
	result := &analytics.AggregationResult{
		MetricType:  metric,
		Granularity: q.Granularity,
		TotalCount:  summary.Count,
		AvgValue:    summary.AvgValue,
		MinValue:    summary.MinValue,
		MaxValue:    summary.MaxValue,
	}

	if metric == analytics.MetricTicketCount && len(q.GroupBy) > 0 {
		// One-dimensional distributions per field over the same filtered
		// set, not a cross-tab.
		result.Breakdown = make(map[string]map[string]int64, len(q.GroupBy))
		for _, field := range q.GroupBy {
			dist, err := s.repo.Distribution(ctx, q.OrganizationID, field, q.Start, q.End, q.Filter)
			if err != nil {
				return nil, err
			}
			result.Breakdown[string(field)] = dist
		}
	}

	if q.Granularity != "" {
		series, err := s.repo.TimeSeries(ctx, q.OrganizationID, metric, q.Start, q.End, q.Granularity, q.Filter)
		if err != nil {
			return nil, err
		}
		result.TimeSeries = series
	}
	return result, nil
}

// GetDistribution returns ticket counts per stringified field value.
func (s *AnalyticsService) GetDistribution(ctx context.Context, q DistributionQuery) (map[string]int64, error) {
	compute := func() (any, error) {
		return s.repo.Distribution(ctx, q.OrganizationID, q.Field, q.Start, q.End, q.Filter)
	}

	key := cache.Key(cache.OpDistribution, q.OrganizationID, string(q.Field), q.params())

	out := make(map[string]int64)
	if err := s.getOrCompute(ctx, cache.OpDistribution, key, q.UseCache, &out, compute); err != nil {
		return nil, err
	}
	return out, nil
}

// GetGroupByAggregation returns independent one-dimensional distributions for
// each requested field, all computed from the same filtered set.
func (s *AnalyticsService) GetGroupByAggregation(ctx context.Context, q RangeQuery, fields []analytics.Field) (map[string]map[string]int64, error) {
	result := make(map[string]map[string]int64, len(fields))
	for _, field := range fields {
		dist, err := s.GetDistribution(ctx, DistributionQuery{RangeQuery: q, Field: field})
		if err != nil {
			return nil, err
		}
		result[string(field)] = dist
	}
	return result, nil
}

// GetPercentiles computes interpolated percentiles for a duration metric.
// An empty result means no qualifying records; that is not an error.
func (s *AnalyticsService) GetPercentiles(ctx context.Context, q PercentileQuery) (map[string]float64, error) {
	if !q.Metric.IsDuration() {
		return nil, analytics.ErrUnsupportedMetric
	}
	percentiles := q.Percentiles
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	compute := func() (any, error) {
		samples, err := s.repo.DurationSamples(ctx, q.OrganizationID, q.Metric, q.Start, q.End, q.Filter)
		if err != nil {
			return nil, err
		}
		return analytics.Percentiles(samples, percentiles), nil
	}

	params := q.params()
	params["percentiles"] = joinInts(percentiles)
	key := cache.Key(cache.OpPerformance, q.OrganizationID, string(q.Metric), params)

	out := make(map[string]float64)
	if err := s.getOrCompute(ctx, cache.OpPerformance, key, q.UseCache, &out, compute); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPerformanceMetrics returns p50/p95/p99 for response and resolution
// times.
func (s *AnalyticsService) GetPerformanceMetrics(ctx context.Context, q RangeQuery) (*analytics.PerformanceMetrics, error) {
	compute := func() (any, error) {
		response, err := s.repo.DurationSamples(ctx, q.OrganizationID, analytics.MetricResponseTime, q.Start, q.End, q.Filter)
		if err != nil {
			return nil, err
		}
		resolution, err := s.repo.DurationSamples(ctx, q.OrganizationID, analytics.MetricResolutionTime, q.Start, q.End, q.Filter)
		if err != nil {
			return nil, err
		}
		responseP := analytics.Percentiles(response, DefaultPercentiles)
		resolutionP := analytics.Percentiles(resolution, DefaultPercentiles)
		return &analytics.PerformanceMetrics{
			ResponseTimeP50:   percentileValue(responseP, 50),
			ResponseTimeP95:   percentileValue(responseP, 95),
			ResponseTimeP99:   percentileValue(responseP, 99),
			ResolutionTimeP50: percentileValue(resolutionP, 50),
			ResolutionTimeP95: percentileValue(resolutionP, 95),
			ResolutionTimeP99: percentileValue(resolutionP, 99),
		}, nil
	}

	key := cache.Key(cache.OpPerformance, q.OrganizationID, "", q.params())

	var out analytics.PerformanceMetrics
	if err := s.getOrCompute(ctx, cache.OpPerformance, key, q.UseCache, &out, compute); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDashboardMetrics assembles the multi-metric dashboard payload. The
// overview variant additionally carries trailing daily trend series. Each
// sub-metric is computed independently; a failing one degrades to its
// zero/empty value instead of failing the dashboard.
func (s *AnalyticsService) GetDashboardMetrics(ctx context.Context, q RangeQuery, includeTrends bool) (*analytics.DashboardMetrics, error) {
	compute := func() (any, error) {
		return s.composeDashboard(ctx, q, includeTrends)
	}

	params := q.params()
	params["trends"] = strconv.FormatBool(includeTrends)
	key := cache.Key(cache.OpDashboard, q.OrganizationID, "", params)

	var out analytics.DashboardMetrics
	if err := s.getOrCompute(ctx, cache.OpDashboard, key, q.UseCache, &out, compute); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AnalyticsService) composeDashboard(ctx context.Context, q RangeQuery, includeTrends bool) (*analytics.DashboardMetrics, error) {
	out := &analytics.DashboardMetrics{
		SentimentBreakdown: map[string]int64{},
		CategoryBreakdown:  map[string]int64{},
		ChannelBreakdown:   map[string]int64{},
		PriorityBreakdown:  map[string]int64{},
	}

	// Each goroutine writes a distinct field of out; errors degrade that
	// field only.
	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				s.logger.Warn("dashboard sub-metric degraded",
					zap.String("sub_metric", name),
					zap.Int64("organization_id", q.OrganizationID),
					zap.Error(err))
			}
			return nil
		})
	}

	statusFilter := func(status domain.TicketStatus) analytics.Filter {
		f := q.Filter
		f.Statuses = []domain.TicketStatus{status}
		return f
	}

	run("total_tickets", func(ctx context.Context) error {
		n, err := s.repo.Count(ctx, q.OrganizationID, q.Start, q.End, q.Filter)
		if err != nil {
			return err
		}
		out.TotalTickets = n
		return nil
	})
	run("open_tickets", func(ctx context.Context) error {
		n, err := s.repo.Count(ctx, q.OrganizationID, q.Start, q.End, statusFilter(domain.TicketStatusOpen))
		if err != nil {
			return err
		}
		out.OpenTickets = n
		return nil
	})
	run("resolved_tickets", func(ctx context.Context) error {
		n, err := s.repo.Count(ctx, q.OrganizationID, q.Start, q.End, statusFilter(domain.TicketStatusResolved))
		if err != nil {
			return err
		}
		out.ResolvedTickets = n
		return nil
	})
	run("avg_response_time", func(ctx context.Context) error {
		summary, err := s.repo.Summary(ctx, q.OrganizationID, analytics.MetricResponseTime, q.Start, q.End, q.Filter)
		if err != nil {
			return err
		}
		out.AvgResponseTimeHours = summary.AvgValue
		return nil
	})
	run("avg_resolution_time", func(ctx context.Context) error {
		summary, err := s.repo.Summary(ctx, q.OrganizationID, analytics.MetricResolutionTime, q.Start, q.End, q.Filter)
		if err != nil {
			return err
		}
		out.AvgResolutionTimeHours = summary.AvgValue
		return nil
	})
	run("sentiment_breakdown", func(ctx context.Context) error {
		breakdown, err := s.repo.SentimentBreakdown(ctx, q.OrganizationID, q.Start, q.End, q.Filter)
		if err != nil {
			return err
		}
		out.SentimentBreakdown = breakdown
		return nil
	})
	for _, field := range []analytics.Field{analytics.FieldCategory, analytics.FieldChannel, analytics.FieldPriority} {
		field := field
		run("distribution_"+string(field), func(ctx context.Context) error {
			dist, err := s.repo.Distribution(ctx, q.OrganizationID, field, q.Start, q.End, q.Filter)
			if err != nil {
				return err
			}
			switch field {
			case analytics.FieldCategory:
				out.CategoryBreakdown = dist
			case analytics.FieldChannel:
				out.ChannelBreakdown = dist
			case analytics.FieldPriority:
				out.PriorityBreakdown = dist
			}
			return nil
		})
	}
	_ = g.Wait()

	if includeTrends {
		out.TrendData = make(map[string][]analytics.Point, 3)
		trendStart := q.End.AddDate(0, 0, -s.trendDays)
		for _, metric := range []analytics.MetricType{analytics.MetricTicketCount, analytics.MetricResponseTime, analytics.MetricResolutionTime} {
			series, err := s.repo.TimeSeries(ctx, q.OrganizationID, metric, trendStart, q.End, analytics.GranularityDaily, q.Filter)
			if err != nil {
				s.logger.Warn("dashboard trend degraded",
					zap.String("metric", string(metric)),
					zap.Error(err))
				series = []analytics.Point{}
			}
			out.TrendData[string(metric)] = series
		}
	}
	return out, nil
}

// ExportData builds a cache-free export of per-metric series.
func (s *AnalyticsService) ExportData(ctx context.Context, q RangeQuery, metrics []analytics.MetricType, granularity analytics.Granularity) (*analytics.Export, error) {
	export := &analytics.Export{
		OrganizationID: q.OrganizationID,
		ExportedAt:     time.Now().UTC(),
		Period:         analytics.ExportPeriod{Start: q.Start.UTC(), End: q.End.UTC()},
		Granularity:    granularity,
		Metrics:        make(map[string][]analytics.Point, len(metrics)),
	}
	for _, metric := range metrics {
		series, err := s.repo.TimeSeries(ctx, q.OrganizationID, metric, q.Start, q.End, granularity, q.Filter)
		if err != nil {
			return nil, err
		}
		if series == nil {
			series = []analytics.Point{}
		}
		export.Metrics[string(metric)] = series
	}
	return export, nil
}

// InvalidateCache drops cached analytics for the organization: every entry
// when op is empty, otherwise the entries of one operation.
func (s *AnalyticsService) InvalidateCache(ctx context.Context, organizationID int64, op string) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	pattern := cache.OrgPattern(organizationID)
	if op != "" {
		pattern = cache.OpPattern(op, organizationID)
	}
	return s.cache.DeletePattern(ctx, pattern)
}

// getOrCompute is the cache-aside core: on hit unmarshal into dest; on miss
// compute (deduped per key), store best-effort, and unmarshal the freshly
// encoded value into dest so both paths return identical shapes.
func (s *AnalyticsService) getOrCompute(ctx context.Context, op, key string, useCache bool, dest any, compute func() (any, error)) error {
	if !useCache || s.cache == nil {
		value, err := compute()
		if err != nil {
			return err
		}
		return reencode(value, dest)
	}

	if raw := s.cacheGet(ctx, op, key); raw != nil {
		if err := json.Unmarshal(raw, dest); err == nil {
			return nil
		}
		// Undecodable entry: fall through and recompute over it.
		s.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	}

	raw, err, _ := s.flight.Do(key, func() (any, error) {
		value, err := compute()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			s.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (s *AnalyticsService) cacheGet(ctx context.Context, op, key string) []byte {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		// Cache trouble is a performance problem, not a request failure.
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		s.metrics.RecordCacheMiss(op)
		return nil
	}
	if raw == nil {
		s.metrics.RecordCacheMiss(op)
		return nil
	}
	s.metrics.RecordCacheHit(op)
	return raw
}

// reencode copies a computed value into the caller's destination through
// JSON, keeping the bypass path shape-identical with the cached path.
func reencode(value, dest any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}

func percentileValue(percentiles map[string]float64, p int) *float64 {
	value, ok := percentiles[analytics.FormatPercentile(p)]
	if !ok {
		return nil
	}
	return &value
}

func joinFields(fields []analytics.Field) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = string(field)
	}
	return strings.Join(parts, ",")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

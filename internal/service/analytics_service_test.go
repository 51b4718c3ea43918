package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/cache"
	"github.com/spec-kit/support-analytics/internal/observability"
	"github.com/spec-kit/support-analytics/internal/service"
)

// stubAnalyticsRepo counts invocations so tests can observe whether the
// cache-aside path recomputed.
type stubAnalyticsRepo struct {
	calls           int
	count           int64
	points          []analytics.Point
	summary         analytics.Summary
	distribution    map[string]int64
	samples         []float64
	sentiment       map[string]int64
	summaryErr      error
	timeSeriesErr   error
	distributionErr error
}

func (s *stubAnalyticsRepo) Count(context.Context, int64, time.Time, time.Time, analytics.Filter) (int64, error) {
	s.calls++
	return s.count, nil
}

func (s *stubAnalyticsRepo) TimeSeries(context.Context, int64, analytics.MetricType, time.Time, time.Time, analytics.Granularity, analytics.Filter) ([]analytics.Point, error) {
	s.calls++
	if s.timeSeriesErr != nil {
		return nil, s.timeSeriesErr
	}
	return s.points, nil
}

func (s *stubAnalyticsRepo) Summary(context.Context, int64, analytics.MetricType, time.Time, time.Time, analytics.Filter) (analytics.Summary, error) {
	s.calls++
	if s.summaryErr != nil {
		return analytics.Summary{}, s.summaryErr
	}
	return s.summary, nil
}

func (s *stubAnalyticsRepo) Distribution(context.Context, int64, analytics.Field, time.Time, time.Time, analytics.Filter) (map[string]int64, error) {
	s.calls++
	if s.distributionErr != nil {
		return nil, s.distributionErr
	}
	return s.distribution, nil
}

func (s *stubAnalyticsRepo) DurationSamples(context.Context, int64, analytics.MetricType, time.Time, time.Time, analytics.Filter) ([]float64, error) {
	s.calls++
	return s.samples, nil
}

func (s *stubAnalyticsRepo) SentimentBreakdown(context.Context, int64, time.Time, time.Time, analytics.Filter) (map[string]int64, error) {
	s.calls++
	return s.sentiment, nil
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}

func (failingStore) DeletePattern(context.Context, string) (int64, error) {
	return 0, errors.New("store down")
}

func (failingStore) Ping(context.Context) error { return errors.New("store down") }
func (failingStore) Close() error               { return nil }

func newService(repo *stubAnalyticsRepo, store cache.Store) *service.AnalyticsService {
	return service.NewAnalyticsService(service.AnalyticsDependencies{
		Repo:    repo,
		Cache:   store,
		Logger:  zap.NewNop(),
		Metrics: observability.NewMetrics(),
		TTL:     time.Minute,
	})
}

func testQuery(org int64) service.RangeQuery {
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return service.RangeQuery{
		OrganizationID: org,
		Start:          end.AddDate(0, 0, -30),
		End:            end,
		UseCache:       true,
	}
}

func TestGetTimeSeriesCachesResult(t *testing.T) {
	repo := &stubAnalyticsRepo{points: []analytics.Point{
		{Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Value: 3, Count: 3},
		{Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Value: 5, Count: 5},
	}}
	svc := newService(repo, cache.NewMemoryStore())
	q := service.SeriesQuery{
		RangeQuery:  testQuery(1),
		Metric:      analytics.MetricTicketCount,
		Granularity: analytics.GranularityDaily,
	}

	first, err := svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
	require.Len(t, first.DataPoints, 2)
	require.Equal(t, int64(8), first.TotalCount)
	require.InDelta(t, 4.0, first.AverageValue, 1e-9)
	require.InDelta(t, 3.0, first.MinValue, 1e-9)
	require.InDelta(t, 5.0, first.MaxValue, 1e-9)

	second, err := svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "second call must be served from cache")
	require.Equal(t, first, second)
}

func TestGetTimeSeriesBypassWhenCacheDisabled(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := newService(repo, cache.NewMemoryStore())
	q := service.SeriesQuery{
		RangeQuery:  testQuery(1),
		Metric:      analytics.MetricTicketCount,
		Granularity: analytics.GranularityDaily,
	}
	q.UseCache = false

	_, err := svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)
	_, err = svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "bypass must recompute every call")
}

func TestGetTimeSeriesDegradesOnStoreFailure(t *testing.T) {
	repo := &stubAnalyticsRepo{points: []analytics.Point{{Value: 1, Count: 1}}}
	svc := newService(repo, failingStore{})
	q := service.SeriesQuery{
		RangeQuery:  testQuery(1),
		Metric:      analytics.MetricTicketCount,
		Granularity: analytics.GranularityDaily,
	}

	result, err := svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err, "cache trouble must not fail the query")
	require.Len(t, result.DataPoints, 1)
	require.Equal(t, 1, repo.calls)
}

func TestGetPercentilesRejectsNonDuration(t *testing.T) {
	svc := newService(&stubAnalyticsRepo{}, cache.NewMemoryStore())
	_, err := svc.GetPercentiles(context.Background(), service.PercentileQuery{
		RangeQuery: testQuery(1),
		Metric:     analytics.MetricTicketCount,
	})
	require.ErrorIs(t, err, analytics.ErrUnsupportedMetric)
}

func TestGetPercentilesDefaults(t *testing.T) {
	repo := &stubAnalyticsRepo{samples: []float64{1, 2, 3, 4, 5}}
	svc := newService(repo, cache.NewMemoryStore())

	result, err := svc.GetPercentiles(context.Background(), service.PercentileQuery{
		RangeQuery: testQuery(1),
		Metric:     analytics.MetricResponseTime,
	})
	require.NoError(t, err)
	require.Contains(t, result, "p50")
	require.Contains(t, result, "p95")
	require.Contains(t, result, "p99")
	require.InDelta(t, 3.0, result["p50"], 1e-9)
}

func TestGetPercentilesEmptySample(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := newService(repo, cache.NewMemoryStore())

	result, err := svc.GetPercentiles(context.Background(), service.PercentileQuery{
		RangeQuery: testQuery(1),
		Metric:     analytics.MetricResolutionTime,
	})
	require.NoError(t, err, "no qualifying records is not an error")
	require.Empty(t, result)
}

func TestGetPerformanceMetricsNilWhenEmpty(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := newService(repo, cache.NewMemoryStore())

	result, err := svc.GetPerformanceMetrics(context.Background(), testQuery(1))
	require.NoError(t, err)
	require.Nil(t, result.ResponseTimeP50)
	require.Nil(t, result.ResolutionTimeP99)
}

func TestGetDashboardMetricsDegradesPartially(t *testing.T) {
	repo := &stubAnalyticsRepo{
		count:      12,
		summaryErr: errors.New("summary backend down"),
		distribution: map[string]int64{
			"email": 7,
		},
		sentiment: map[string]int64{"positive": 4},
	}
	svc := newService(repo, cache.NewMemoryStore())
	q := testQuery(1)
	q.UseCache = false

	result, err := svc.GetDashboardMetrics(context.Background(), q, false)
	require.NoError(t, err, "a failing sub-metric must not fail the dashboard")
	require.Equal(t, int64(12), result.TotalTickets)
	require.Zero(t, result.AvgResponseTimeHours, "failed sub-metric degrades to zero")
	require.Equal(t, int64(4), result.SentimentBreakdown["positive"])
	require.Equal(t, int64(7), result.ChannelBreakdown["email"])
}

func TestGetAggregationWithGroupBy(t *testing.T) {
	repo := &stubAnalyticsRepo{
		summary:      analytics.Summary{MetricType: analytics.MetricTicketCount, Count: 9},
		distribution: map[string]int64{"open": 5, "closed": 4},
	}
	svc := newService(repo, cache.NewMemoryStore())
	q := service.AggregationQuery{
		RangeQuery:  testQuery(1),
		Metrics:     []analytics.MetricType{analytics.MetricTicketCount},
		Granularity: analytics.GranularityDaily,
		GroupBy:     []analytics.Field{analytics.FieldStatus},
	}
	q.UseCache = false

	results, err := svc.GetAggregation(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(9), results[0].TotalCount)
	require.Equal(t, int64(5), results[0].Breakdown["status"]["open"])
}

func TestGetGroupByAggregationCachesPerField(t *testing.T) {
	repo := &stubAnalyticsRepo{distribution: map[string]int64{"a": 2, "b": 1}}
	svc := newService(repo, cache.NewMemoryStore())
	fields := []analytics.Field{analytics.FieldStatus, analytics.FieldPriority}

	result, err := svc.GetGroupByAggregation(context.Background(), testQuery(1), fields)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
	require.Equal(t, map[string]int64{"a": 2, "b": 1}, result["status"])
	require.Equal(t, map[string]int64{"a": 2, "b": 1}, result["priority"])

	_, err = svc.GetGroupByAggregation(context.Background(), testQuery(1), fields)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "each field's distribution must be cached")
}

func TestInvalidateCacheScopes(t *testing.T) {
	store := cache.NewMemoryStore()
	repo := &stubAnalyticsRepo{points: []analytics.Point{{Value: 1, Count: 1}}}
	svc := newService(repo, store)
	q := service.SeriesQuery{
		RangeQuery:  testQuery(3),
		Metric:      analytics.MetricTicketCount,
		Granularity: analytics.GranularityDaily,
	}

	_, err := svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)

	deleted, err := svc.InvalidateCache(context.Background(), 3, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = svc.GetTimeSeries(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "invalidation must force a recompute")
}

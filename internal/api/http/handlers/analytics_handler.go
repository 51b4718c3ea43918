package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/observability"
	"github.com/spec-kit/support-analytics/internal/service"
	apperrors "github.com/spec-kit/support-analytics/pkg/util"
)

// defaultRangeDays bounds a query when the caller omits start_date.
const defaultRangeDays = 30

// AnalyticsHandler exposes the analytics query surface. Every endpoint is
// scoped to the caller's organization; the org never comes from the request.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	metrics *observability.Metrics
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService, metrics *observability.Metrics) *AnalyticsHandler {
	return &AnalyticsHandler{service: analyticsService, metrics: metrics}
}

// TimeSeries GET /analytics/time-series.
func (h *AnalyticsHandler) TimeSeries(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	metric, err := analytics.ParseMetricType(c.Query("metric", string(analytics.MetricTicketCount)))
	if err != nil {
		return err
	}
	granularity, err := analytics.ParseGranularity(c.Query("granularity"))
	if err != nil {
		return err
	}
	result, err := h.service.GetTimeSeries(c.UserContext(), service.SeriesQuery{
		RangeQuery:  q,
		Metric:      metric,
		Granularity: granularity,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Aggregations GET /analytics/aggregations.
func (h *AnalyticsHandler) Aggregations(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	metrics, err := parseMetricList(c.Query("metrics", string(analytics.MetricTicketCount)))
	if err != nil {
		return err
	}
	granularity, err := analytics.ParseGranularity(c.Query("granularity"))
	if err != nil {
		return err
	}
	groupBy, err := parseFieldList(c.Query("group_by"))
	if err != nil {
		return err
	}
	results, err := h.service.GetAggregation(c.UserContext(), service.AggregationQuery{
		RangeQuery:  q,
		Metrics:     metrics,
		Granularity: granularity,
		GroupBy:     groupBy,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": results})
}

// Distribution GET /analytics/distribution/:field.
func (h *AnalyticsHandler) Distribution(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	field, err := analytics.ParseField(c.Params("field"))
	if err != nil {
		return err
	}
	dist, err := h.service.GetDistribution(c.UserContext(), service.DistributionQuery{
		RangeQuery: q,
		Field:      field,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"field":        field,
		"distribution": dist,
	}})
}

// GroupBy GET /analytics/group-by. One independent distribution per
// requested field, all computed from the same filtered set.
func (h *AnalyticsHandler) GroupBy(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	fields, err := parseFieldList(c.Query("fields"))
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return apperrors.NewValidationError("fields required", nil)
	}
	result, err := h.service.GetGroupByAggregation(c.UserContext(), q, fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Percentiles GET /analytics/percentiles.
func (h *AnalyticsHandler) Percentiles(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	metric, err := analytics.ParseMetricType(c.Query("metric", string(analytics.MetricResponseTime)))
	if err != nil {
		return err
	}
	percentiles, err := parsePercentileList(c.Query("percentiles"))
	if err != nil {
		return err
	}
	result, err := h.service.GetPercentiles(c.UserContext(), service.PercentileQuery{
		RangeQuery:  q,
		Metric:      metric,
		Percentiles: percentiles,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"metric_type": metric,
		"percentiles": result,
	}})
}

// Dashboard GET /analytics/dashboard.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	result, err := h.service.GetDashboardMetrics(c.UserContext(), q, false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// DashboardOverview GET /analytics/dashboard/overview. Same payload as the
// dashboard plus trailing daily trends.
func (h *AnalyticsHandler) DashboardOverview(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	result, err := h.service.GetDashboardMetrics(c.UserContext(), q, true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Performance GET /analytics/performance.
func (h *AnalyticsHandler) Performance(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	result, err := h.service.GetPerformanceMetrics(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Export GET /analytics/export.
func (h *AnalyticsHandler) Export(c *fiber.Ctx) error {
	q, _, err := parseRangeQuery(c)
	if err != nil {
		return err
	}
	metrics, err := parseMetricList(c.Query("metrics", string(analytics.MetricTicketCount)))
	if err != nil {
		return err
	}
	granularity, err := analytics.ParseGranularity(c.Query("granularity"))
	if err != nil {
		return err
	}
	export, err := h.service.ExportData(c.UserContext(), q, metrics, granularity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": export})
}

// InvalidateCache POST /analytics/cache/invalidate. Admin only; op narrows
// the purge to one operation's entries.
func (h *AnalyticsHandler) InvalidateCache(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req struct {
		Op string `json:"op"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	deleted, err := h.service.InvalidateCache(c.UserContext(), principal.OrganizationID, req.Op)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}

// CacheStats GET /analytics/cache/stats.
func (h *AnalyticsHandler) CacheStats(c *fiber.Ctx) error {
	hits, misses := h.metrics.CacheStats()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"hits":   hits,
		"misses": misses,
	}})
}

// parseRangeQuery extracts the shared org/range/filter/use_cache parameters.
func parseRangeQuery(c *fiber.Ctx) (service.RangeQuery, *auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.RangeQuery{}, nil, apperrors.NewUnauthorized("authentication required")
	}

	end := time.Now().UTC()
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return service.RangeQuery{}, nil, apperrors.NewValidationError("invalid end_date", nil)
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -defaultRangeDays)
	if raw := c.Query("start_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return service.RangeQuery{}, nil, apperrors.NewValidationError("invalid start_date", nil)
		}
		start = parsed
	}
	if !start.Before(end) {
		return service.RangeQuery{}, nil, apperrors.NewValidationError("start_date must precede end_date", nil)
	}

	useCache := true
	if raw := c.Query("use_cache"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return service.RangeQuery{}, nil, apperrors.NewValidationError("invalid use_cache", nil)
		}
		useCache = parsed
	}

	return service.RangeQuery{
		OrganizationID: principal.OrganizationID,
		Start:          start,
		End:            end,
		Filter:         parseFilter(c),
		UseCache:       useCache,
	}, principal, nil
}

func parseFilter(c *fiber.Ctx) analytics.Filter {
	var filter analytics.Filter
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(raw))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(raw))
	}
	for _, raw := range splitCSV(c.Query("channel")) {
		filter.Channels = append(filter.Channels, domain.TicketChannel(raw))
	}
	filter.Categories = splitCSV(c.Query("category"))
	if raw := c.Query("assigned_to"); raw != "" {
		filter.AssignedTo = &raw
	}
	return filter
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseMetricList(raw string) ([]analytics.MetricType, error) {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return nil, apperrors.NewValidationError("metrics required", nil)
	}
	metrics := make([]analytics.MetricType, 0, len(parts))
	for _, part := range parts {
		metric, err := analytics.ParseMetricType(part)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

func parseFieldList(raw string) ([]analytics.Field, error) {
	parts := splitCSV(raw)
	fields := make([]analytics.Field, 0, len(parts))
	for _, part := range parts {
		field, err := analytics.ParseField(part)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parsePercentileList(raw string) ([]int, error) {
	parts := splitCSV(raw)
	percentiles := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 100 {
			return nil, apperrors.NewValidationError("percentiles must be integers in [1,100]", nil)
		}
		percentiles = append(percentiles, p)
	}
	return percentiles, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

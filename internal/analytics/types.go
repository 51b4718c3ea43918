package analytics

import "time"

// Point is a single time-series sample: the bucket start, the metric value
// for the bucket, and the number of records that contributed to it.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Count     int64     `json:"count"`
}

// Summary holds aggregate statistics for one metric over a filtered range.
// When no records qualified, the numeric values are 0.0 with Count=0 so
// consumers can distinguish "zero" from "no data".
type Summary struct {
	MetricType MetricType `json:"metric_type"`
	AvgValue   float64    `json:"avg_value"`
	MinValue   float64    `json:"min_value"`
	MaxValue   float64    `json:"max_value"`
	Count      int64      `json:"total_count"`
}

// TimeSeriesResult is the caller-facing shape of a time-series query.
type TimeSeriesResult struct {
	MetricType   MetricType  `json:"metric_type"`
	Granularity  Granularity `json:"granularity"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	DataPoints   []Point     `json:"data_points"`
	TotalCount   int64       `json:"total_count"`
	AverageValue float64     `json:"average_value"`
	MinValue     float64     `json:"min_value"`
	MaxValue     float64     `json:"max_value"`
}

// AggregationResult is the caller-facing shape of an aggregation query for a
// single metric, optionally carrying per-field breakdowns and a series.
type AggregationResult struct {
	MetricType  MetricType                  `json:"metric_type"`
	Granularity Granularity                 `json:"granularity"`
	TotalCount  int64                       `json:"total_count"`
	AvgValue    float64                     `json:"avg_value"`
	MinValue    float64                     `json:"min_value"`
	MaxValue    float64                     `json:"max_value"`
	Breakdown   map[string]map[string]int64 `json:"breakdown,omitempty"`
	TimeSeries  []Point                     `json:"time_series,omitempty"`
}

// DashboardMetrics is the merged multi-metric dashboard payload. TrendData is
// only populated for the overview variant.
type DashboardMetrics struct {
	TotalTickets           int64              `json:"total_tickets"`
	OpenTickets            int64              `json:"open_tickets"`
	ResolvedTickets        int64              `json:"resolved_tickets"`
	AvgResponseTimeHours   float64            `json:"avg_response_time_hours"`
	AvgResolutionTimeHours float64            `json:"avg_resolution_time_hours"`
	SentimentBreakdown     map[string]int64   `json:"sentiment_breakdown"`
	CategoryBreakdown      map[string]int64   `json:"category_breakdown"`
	ChannelBreakdown       map[string]int64   `json:"channel_breakdown"`
	PriorityBreakdown      map[string]int64   `json:"priority_breakdown"`
	TrendData              map[string][]Point `json:"trend_data,omitempty"`
}

// PerformanceMetrics carries interpolated duration percentiles. Fields are
// nil when no qualifying records exist in the range.
type PerformanceMetrics struct {
	ResponseTimeP50   *float64 `json:"response_time_p50"`
	ResponseTimeP95   *float64 `json:"response_time_p95"`
	ResponseTimeP99   *float64 `json:"response_time_p99"`
	ResolutionTimeP50 *float64 `json:"resolution_time_p50"`
	ResolutionTimeP95 *float64 `json:"resolution_time_p95"`
	ResolutionTimeP99 *float64 `json:"resolution_time_p99"`
}

// ExportPeriod bounds an export payload.
type ExportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Export is the cache-free data export payload: one series per metric.
type Export struct {
	OrganizationID int64              `json:"organization_id"`
	ExportedAt     time.Time          `json:"exported_at"`
	Period         ExportPeriod       `json:"period"`
	Granularity    Granularity        `json:"granularity"`
	Metrics        map[string][]Point `json:"metrics"`
}

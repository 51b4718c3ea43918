package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-analytics/internal/analytics"
)

// AnalyticsRepository runs the aggregation-engine operations over a filtered,
// org- and date-scoped ticket set. Date ranges are half-open:
// start <= created_at < end.
//
// Two implementations exist: the Postgres one below, which pushes bucketing
// and aggregation into SQL via native date_trunc, and the scan one for
// backends without native time truncation. Which one serves a deployment is
// an explicit startup decision, never re-derived per query.
type AnalyticsRepository interface {
	Count(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (int64, error)
	TimeSeries(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, granularity analytics.Granularity, filter analytics.Filter) ([]analytics.Point, error)
	Summary(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) (analytics.Summary, error)
	Distribution(ctx context.Context, organizationID int64, field analytics.Field, start, end time.Time, filter analytics.Filter) (map[string]int64, error)
	DurationSamples(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) ([]float64, error)
	SentimentBreakdown(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (map[string]int64, error)
}

type postgresAnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAnalyticsRepository builds the native-truncation backend.
func NewPostgresAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &postgresAnalyticsRepository{pool: pool}
}

// appendAnalyticsFilter translates the generic filter description into SQL
// clauses. Conjunctive across keys, disjunctive within a key; absent keys add
// nothing. Shared with the ticket repository's range scans.
func appendAnalyticsFilter(clauses *[]string, args *[]any, filter analytics.Filter) {
	appendIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, value := range values {
			*args = append(*args, value)
			placeholders[i] = fmt.Sprintf("$%d", len(*args))
		}
		*clauses = append(*clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}

	appendIn("status", statusValues(filter.Statuses))
	appendIn("priority", priorityValues(filter.Priorities))
	appendIn("channel", channelValues(filter.Channels))
	appendIn("category", filter.Categories)

	if filter.AssignedTo != nil {
		*args = append(*args, *filter.AssignedTo)
		*clauses = append(*clauses, fmt.Sprintf("assigned_to=$%d", len(*args)))
	}
}

func scopedClauses(organizationID int64, start, end time.Time, filter analytics.Filter) ([]string, []any) {
	args := []any{organizationID, start, end}
	clauses := []string{"organization_id=$1", "created_at >= $2", "created_at < $3"}
	appendAnalyticsFilter(&clauses, &args, filter)
	return clauses, args
}

// durationExpr is the epoch-seconds delta in hours for a duration metric.
// Floating point throughout; never integer-truncated.
func durationExpr(metric analytics.MetricType) (expr, notNull string, err error) {
	switch metric {
	case analytics.MetricResponseTime:
		return "EXTRACT(EPOCH FROM (first_response_at - created_at)) / 3600.0", "first_response_at IS NOT NULL", nil
	case analytics.MetricResolutionTime:
		return "EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600.0", "resolved_at IS NOT NULL", nil
	default:
		return "", "", fmt.Errorf("%w: %q", analytics.ErrUnsupportedMetric, metric)
	}
}

func (r *postgresAnalyticsRepository) Count(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (int64, error) {
	clauses, args := scopedClauses(organizationID, start, end, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))
	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresAnalyticsRepository) TimeSeries(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, granularity analytics.Granularity, filter analytics.Filter) ([]analytics.Point, error) {
	if _, err := analytics.ParseGranularity(string(granularity)); err != nil {
		return nil, err
	}
	clauses, args := scopedClauses(organizationID, start, end, filter)
	trunc := fmt.Sprintf("date_trunc('%s', created_at AT TIME ZONE 'UTC')", granularity.TruncField())

	var valueExpr string
	switch metric {
	case analytics.MetricTicketCount:
		valueExpr = "COUNT(*)::float8"
	case analytics.MetricResponseTime, analytics.MetricResolutionTime:
		expr, notNull, err := durationExpr(metric)
		if err != nil {
			return nil, err
		}
		valueExpr = fmt.Sprintf("AVG(%s)", expr)
		clauses = append(clauses, notNull)
	case analytics.MetricSentimentScore:
		valueExpr = "AVG(sentiment_score)"
		clauses = append(clauses, "sentiment_score IS NOT NULL")
	default:
		return nil, fmt.Errorf("%w: %q", analytics.ErrUnsupportedMetric, metric)
	}

	query := fmt.Sprintf(`
        SELECT %s AS bucket, %s AS value, COUNT(*) AS sample_count
        FROM tickets WHERE %s
        GROUP BY bucket ORDER BY bucket`,
		trunc, valueExpr, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []analytics.Point
	for rows.Next() {
		var point analytics.Point
		if err := rows.Scan(&point.Timestamp, &point.Value, &point.Count); err != nil {
			return nil, err
		}
		point.Timestamp = point.Timestamp.UTC()
		points = append(points, point)
	}
	return points, rows.Err()
}

func (r *postgresAnalyticsRepository) Summary(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) (analytics.Summary, error) {
	summary := analytics.Summary{MetricType: metric}

	if metric == analytics.MetricTicketCount {
		count, err := r.Count(ctx, organizationID, start, end, filter)
		if err != nil {
			return analytics.Summary{}, err
		}
		summary.Count = count
		return summary, nil
	}

	clauses, args := scopedClauses(organizationID, start, end, filter)
	var valueExpr string
	switch metric {
	case analytics.MetricResponseTime, analytics.MetricResolutionTime:
		expr, notNull, err := durationExpr(metric)
		if err != nil {
			return analytics.Summary{}, err
		}
		valueExpr = expr
		clauses = append(clauses, notNull)
	case analytics.MetricSentimentScore:
		valueExpr = "sentiment_score"
		clauses = append(clauses, "sentiment_score IS NOT NULL")
	default:
		return analytics.Summary{}, fmt.Errorf("%w: %q", analytics.ErrUnsupportedMetric, metric)
	}

	query := fmt.Sprintf(`
        SELECT COALESCE(AVG(%[1]s), 0), COALESCE(MIN(%[1]s), 0), COALESCE(MAX(%[1]s), 0), COUNT(*)
        FROM tickets WHERE %[2]s`,
		valueExpr, strings.Join(clauses, " AND "))

	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&summary.AvgValue, &summary.MinValue, &summary.MaxValue, &summary.Count,
	); err != nil {
		return analytics.Summary{}, err
	}
	return summary, nil
}

func (r *postgresAnalyticsRepository) Distribution(ctx context.Context, organizationID int64, field analytics.Field, start, end time.Time, filter analytics.Filter) (map[string]int64, error) {
	if _, err := analytics.ParseField(string(field)); err != nil {
		return nil, err
	}
	clauses, args := scopedClauses(organizationID, start, end, filter)
	query := fmt.Sprintf(`
        SELECT COALESCE(%s::text, '%s') AS value, COUNT(*) AS count
        FROM tickets WHERE %s
        GROUP BY value`,
		field.Column(), analytics.NullGroup, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var value string
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		result[value] = count
	}
	return result, rows.Err()
}

func (r *postgresAnalyticsRepository) DurationSamples(ctx context.Context, organizationID int64, metric analytics.MetricType, start, end time.Time, filter analytics.Filter) ([]float64, error) {
	expr, notNull, err := durationExpr(metric)
	if err != nil {
		return nil, err
	}
	clauses, args := scopedClauses(organizationID, start, end, filter)
	clauses = append(clauses, notNull)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s`, expr, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []float64
	for rows.Next() {
		var hours float64
		if err := rows.Scan(&hours); err != nil {
			return nil, err
		}
		samples = append(samples, hours)
	}
	return samples, rows.Err()
}

func (r *postgresAnalyticsRepository) SentimentBreakdown(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) (map[string]int64, error) {
	clauses, args := scopedClauses(organizationID, start, end, filter)
	clauses = append(clauses, "sentiment_score IS NOT NULL")
	query := fmt.Sprintf(`
        SELECT CASE WHEN sentiment_score > 0.3 THEN '%s'
                    WHEN sentiment_score < -0.3 THEN '%s'
                    ELSE '%s' END AS bucket,
               COUNT(*) AS count
        FROM tickets WHERE %s
        GROUP BY bucket`,
		analytics.SentimentPositive, analytics.SentimentNegative, analytics.SentimentNeutral,
		strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		result[bucket] = count
	}
	return result, rows.Err()
}

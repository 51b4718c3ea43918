package analytics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// Sentinel errors for unsupported query inputs. These surface to callers as
// validation failures; the engine never substitutes a default metric.
var (
	ErrUnsupportedMetric      = errors.New("unsupported metric type")
	ErrUnsupportedGranularity = errors.New("unsupported granularity")
	ErrUnsupportedField       = errors.New("unsupported distribution field")
)

// MetricType names the quantity being aggregated.
type MetricType string

const (
	MetricTicketCount    MetricType = "ticket_count"
	MetricResponseTime   MetricType = "response_time"
	MetricResolutionTime MetricType = "resolution_time"
	MetricSentimentScore MetricType = "sentiment_score"
)

var metricTypes = map[MetricType]struct{}{
	MetricTicketCount:    {},
	MetricResponseTime:   {},
	MetricResolutionTime: {},
	MetricSentimentScore: {},
}

// ParseMetricType validates a metric name.
func ParseMetricType(raw string) (MetricType, error) {
	m := MetricType(raw)
	if _, ok := metricTypes[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMetric, raw)
	}
	return m, nil
}

// IsDuration reports whether the metric measures hours between two ticket
// timestamps, which is what percentile queries operate on.
func (m MetricType) IsDuration() bool {
	return m == MetricResponseTime || m == MetricResolutionTime
}

// Field names a ticket attribute permitted in distribution and group-by
// queries. The set is closed: unrecognized names are rejected at the
// boundary instead of reflecting into arbitrary record attributes.
type Field string

const (
	FieldStatus     Field = "status"
	FieldPriority   Field = "priority"
	FieldChannel    Field = "channel"
	FieldCategory   Field = "category"
	FieldAssignedTo Field = "assigned_to"
)

// GroupableFields lists every permitted distribution field in a stable order.
var GroupableFields = []Field{FieldStatus, FieldPriority, FieldChannel, FieldCategory, FieldAssignedTo}

// ParseField validates a distribution field name.
func ParseField(raw string) (Field, error) {
	f := Field(raw)
	for _, known := range GroupableFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedField, raw)
}

// NullGroup is the grouping key for tickets whose field value is absent.
const NullGroup = "null"

// Value returns the distribution grouping key for a ticket. Absent values
// group under NullGroup.
func (f Field) Value(t *domain.Ticket) string {
	switch f {
	case FieldStatus:
		return string(t.Status)
	case FieldPriority:
		return string(t.Priority)
	case FieldChannel:
		return string(t.Channel)
	case FieldCategory:
		if t.Category == nil {
			return NullGroup
		}
		return *t.Category
	case FieldAssignedTo:
		if t.AssignedTo == nil {
			return NullGroup
		}
		return *t.AssignedTo
	default:
		return NullGroup
	}
}

// Column returns the tickets table column backing the field.
func (f Field) Column() string {
	return string(f)
}

// FormatPercentile renders a percentile map key, e.g. "p95".
func FormatPercentile(p int) string {
	return "p" + strconv.Itoa(p)
}

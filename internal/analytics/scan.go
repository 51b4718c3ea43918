package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// The functions in this file compute every engine operation directly over a
// ticket slice. They back the scan repository used when the store has no
// native time truncation, and they define the reference semantics the SQL
// backend must match (identical bucket boundaries, including quarters).

// DurationHours returns the hour delta for a duration metric, or false when
// the relevant event timestamp is absent.
func DurationHours(t *domain.Ticket, metric MetricType) (float64, bool) {
	switch metric {
	case MetricResponseTime:
		if t.FirstResponseAt == nil {
			return 0, false
		}
		return t.FirstResponseAt.Sub(t.CreatedAt).Seconds() / 3600, true
	case MetricResolutionTime:
		if t.ResolvedAt == nil {
			return 0, false
		}
		return t.ResolvedAt.Sub(t.CreatedAt).Seconds() / 3600, true
	default:
		return 0, false
	}
}

// sample returns the per-ticket value contributing to a metric, or false when
// the ticket does not qualify.
func sample(t *domain.Ticket, metric MetricType) (float64, bool) {
	switch metric {
	case MetricTicketCount:
		return 1, true
	case MetricResponseTime, MetricResolutionTime:
		return DurationHours(t, metric)
	case MetricSentimentScore:
		if t.SentimentScore == nil {
			return 0, false
		}
		return *t.SentimentScore, true
	default:
		return 0, false
	}
}

type seriesAccumulator struct {
	sum   float64
	count int64
}

// SeriesFromTickets buckets qualifying tickets and returns one point per
// non-empty bucket, ascending by bucket start. Empty buckets are omitted,
// never zero-filled. For ticket_count the value is the bucket count; for the
// other metrics it is the bucket average of the per-ticket samples.
func SeriesFromTickets(tickets []domain.Ticket, metric MetricType, g Granularity) ([]Point, error) {
	if _, ok := metricTypes[metric]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
	if _, ok := granularities[g]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, g)
	}

	buckets := make(map[time.Time]*seriesAccumulator)
	for i := range tickets {
		value, ok := sample(&tickets[i], metric)
		if !ok {
			continue
		}
		start := Bucket(tickets[i].CreatedAt, g)
		acc := buckets[start]
		if acc == nil {
			acc = &seriesAccumulator{}
			buckets[start] = acc
		}
		acc.sum += value
		acc.count++
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	points := make([]Point, 0, len(starts))
	for _, start := range starts {
		acc := buckets[start]
		value := acc.sum
		if metric != MetricTicketCount {
			value = acc.sum / float64(acc.count)
		}
		points = append(points, Point{Timestamp: start, Value: value, Count: acc.count})
	}
	return points, nil
}

// SummaryFromTickets computes avg/min/max/count for a metric. With no
// qualifying tickets the summary is zero-valued with Count=0.
func SummaryFromTickets(tickets []domain.Ticket, metric MetricType) (Summary, error) {
	if _, ok := metricTypes[metric]; !ok {
		return Summary{}, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
	summary := Summary{MetricType: metric}
	if metric == MetricTicketCount {
		summary.Count = int64(len(tickets))
		return summary, nil
	}

	var sum float64
	for i := range tickets {
		value, ok := sample(&tickets[i], metric)
		if !ok {
			continue
		}
		if summary.Count == 0 || value < summary.MinValue {
			summary.MinValue = value
		}
		if summary.Count == 0 || value > summary.MaxValue {
			summary.MaxValue = value
		}
		sum += value
		summary.Count++
	}
	if summary.Count > 0 {
		summary.AvgValue = sum / float64(summary.Count)
	}
	return summary, nil
}

// DistributionFromTickets counts tickets per stringified field value.
func DistributionFromTickets(tickets []domain.Ticket, field Field) map[string]int64 {
	result := make(map[string]int64)
	for i := range tickets {
		result[field.Value(&tickets[i])]++
	}
	return result
}

// DurationSamplesFromTickets collects per-ticket hour deltas for a duration
// metric, the input to percentile computation.
func DurationSamplesFromTickets(tickets []domain.Ticket, metric MetricType) []float64 {
	samples := make([]float64, 0, len(tickets))
	for i := range tickets {
		if hours, ok := DurationHours(&tickets[i], metric); ok {
			samples = append(samples, hours)
		}
	}
	return samples
}

// SentimentBreakdownFromTickets classifies scored tickets into the three
// sentiment buckets. Tickets without a score are excluded.
func SentimentBreakdownFromTickets(tickets []domain.Ticket) map[string]int64 {
	result := make(map[string]int64)
	for i := range tickets {
		if tickets[i].SentimentScore == nil {
			continue
		}
		result[ClassifySentiment(*tickets[i].SentimentScore)]++
	}
	return result
}

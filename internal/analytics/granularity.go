package analytics

import (
	"fmt"
	"time"
)

// Granularity names a time-bucket width for series queries.
type Granularity string

const (
	GranularityHourly    Granularity = "hourly"
	GranularityDaily     Granularity = "daily"
	GranularityWeekly    Granularity = "weekly"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

var granularities = map[Granularity]struct{}{
	GranularityHourly:    {},
	GranularityDaily:     {},
	GranularityWeekly:    {},
	GranularityMonthly:   {},
	GranularityQuarterly: {},
	GranularityYearly:    {},
}

// ParseGranularity validates a granularity name. An empty input defaults to
// daily; anything else unknown is rejected.
func ParseGranularity(raw string) (Granularity, error) {
	if raw == "" {
		return GranularityDaily, nil
	}
	g := Granularity(raw)
	if _, ok := granularities[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedGranularity, raw)
	}
	return g, nil
}

// Bucket truncates a timestamp to the start of its bucket for the given
// granularity. All buckets are aligned in UTC; weekly buckets start on
// Monday 00:00. Bucket is idempotent: Bucket(Bucket(t, g), g) == Bucket(t, g).
func Bucket(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case GranularityDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// time.Weekday counts Sunday as 0; shift so Monday is 0.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarterly:
		month := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	case GranularityYearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// TruncField maps a granularity to the Postgres date_trunc field name for
// backends with native time truncation.
func (g Granularity) TruncField() string {
	switch g {
	case GranularityHourly:
		return "hour"
	case GranularityDaily:
		return "day"
	case GranularityWeekly:
		return "week"
	case GranularityMonthly:
		return "month"
	case GranularityQuarterly:
		return "quarter"
	case GranularityYearly:
		return "year"
	default:
		return "day"
	}
}

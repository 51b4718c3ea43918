package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-analytics/internal/analytics"
)

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    analytics.Granularity
		wantErr bool
	}{
		{name: "empty defaults to daily", raw: "", want: analytics.GranularityDaily},
		{name: "hourly", raw: "hourly", want: analytics.GranularityHourly},
		{name: "quarterly", raw: "quarterly", want: analytics.GranularityQuarterly},
		{name: "unknown", raw: "fortnightly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := analytics.ParseGranularity(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, analytics.ErrUnsupportedGranularity)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBucket(t *testing.T) {
	// Wednesday 2024-03-13 14:37:45.5 UTC.
	ts := time.Date(2024, 3, 13, 14, 37, 45, 500_000_000, time.UTC)

	tests := []struct {
		name string
		g    analytics.Granularity
		in   time.Time
		want time.Time
	}{
		{"hourly", analytics.GranularityHourly, ts, time.Date(2024, 3, 13, 14, 0, 0, 0, time.UTC)},
		{"daily", analytics.GranularityDaily, ts, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"weekly snaps to monday", analytics.GranularityWeekly, ts, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"weekly monday stays", analytics.GranularityWeekly, time.Date(2024, 3, 11, 5, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"weekly sunday goes back six days", analytics.GranularityWeekly, time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"monthly", analytics.GranularityMonthly, ts, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"quarterly q1", analytics.GranularityQuarterly, ts, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"quarterly q2 boundary", analytics.GranularityQuarterly, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"quarterly q4", analytics.GranularityQuarterly, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"yearly", analytics.GranularityYearly, ts, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analytics.Bucket(tt.in, tt.g)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBucketIdempotent(t *testing.T) {
	ts := time.Date(2023, 11, 5, 9, 30, 0, 0, time.UTC)
	for _, g := range []analytics.Granularity{
		analytics.GranularityHourly,
		analytics.GranularityDaily,
		analytics.GranularityWeekly,
		analytics.GranularityMonthly,
		analytics.GranularityQuarterly,
		analytics.GranularityYearly,
	} {
		once := analytics.Bucket(ts, g)
		twice := analytics.Bucket(once, g)
		require.Equal(t, once, twice, "granularity %s", g)
	}
}

func TestBucketNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2024, 3, 13, 2, 15, 0, 0, loc)
	got := analytics.Bucket(local, analytics.GranularityDaily)
	// 02:15+05:00 is 21:15 UTC the previous day.
	require.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), got)
}

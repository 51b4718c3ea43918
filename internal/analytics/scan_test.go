package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func ticketAt(created time.Time) domain.Ticket {
	return domain.Ticket{
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityMedium,
		Channel:   domain.TicketChannelEmail,
		CreatedAt: created,
	}
}

func TestSeriesFromTicketsDailyCounts(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var tickets []domain.Ticket
	// Two tickets per day across five days.
	for day := 0; day < 5; day++ {
		tickets = append(tickets,
			ticketAt(base.AddDate(0, 0, day).Add(3*time.Hour)),
			ticketAt(base.AddDate(0, 0, day).Add(15*time.Hour)),
		)
	}

	points, err := analytics.SeriesFromTickets(tickets, analytics.MetricTicketCount, analytics.GranularityDaily)
	require.NoError(t, err)
	require.Len(t, points, 5)

	var total int64
	for i, point := range points {
		require.Equal(t, base.AddDate(0, 0, i), point.Timestamp)
		require.Equal(t, float64(2), point.Value)
		require.Equal(t, int64(2), point.Count)
		total += point.Count
	}
	require.Equal(t, int64(10), total)
}

func TestSeriesFromTicketsOmitsEmptyBuckets(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		ticketAt(base),
		ticketAt(base.AddDate(0, 0, 7)),
	}
	points, err := analytics.SeriesFromTickets(tickets, analytics.MetricTicketCount, analytics.GranularityDaily)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}

func TestSeriesFromTicketsAveragesDurations(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := ticketAt(base)
	first.FirstResponseAt = timePtr(base.Add(2 * time.Hour))
	second := ticketAt(base.Add(time.Hour))
	second.FirstResponseAt = timePtr(base.Add(1 * time.Hour).Add(26 * time.Hour))
	unanswered := ticketAt(base)

	points, err := analytics.SeriesFromTickets(
		[]domain.Ticket{first, second, unanswered},
		analytics.MetricResponseTime,
		analytics.GranularityDaily,
	)
	require.NoError(t, err)
	require.Len(t, points, 1)
	// (2h + 26h) / 2 tickets; the unanswered ticket contributes nothing.
	require.InDelta(t, 14.0, points[0].Value, 1e-9)
	require.Equal(t, int64(2), points[0].Count)
}

func TestSeriesFromTicketsQuarterlyMergesMonths(t *testing.T) {
	tickets := []domain.Ticket{
		ticketAt(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		ticketAt(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)),
		ticketAt(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)),
		ticketAt(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}
	points, err := analytics.SeriesFromTickets(tickets, analytics.MetricTicketCount, analytics.GranularityQuarterly)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
	require.Equal(t, int64(3), points[0].Count)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), points[1].Timestamp)
	require.Equal(t, int64(1), points[1].Count)
}

func TestSeriesFromTicketsRejectsUnknownMetric(t *testing.T) {
	_, err := analytics.SeriesFromTickets(nil, analytics.MetricType("velocity"), analytics.GranularityDaily)
	require.ErrorIs(t, err, analytics.ErrUnsupportedMetric)
}

func TestSummaryFromTickets(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	quick := ticketAt(base)
	quick.ResolvedAt = timePtr(base.Add(90 * time.Minute))
	slow := ticketAt(base)
	slow.ResolvedAt = timePtr(base.Add(10 * time.Hour))
	open := ticketAt(base)

	summary, err := analytics.SummaryFromTickets([]domain.Ticket{quick, slow, open}, analytics.MetricResolutionTime)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.Count)
	require.InDelta(t, 1.5, summary.MinValue, 1e-9)
	require.InDelta(t, 10.0, summary.MaxValue, 1e-9)
	require.InDelta(t, 5.75, summary.AvgValue, 1e-9)
}

func TestSummaryFromTicketsEmpty(t *testing.T) {
	summary, err := analytics.SummaryFromTickets(nil, analytics.MetricResponseTime)
	require.NoError(t, err)
	require.Equal(t, int64(0), summary.Count)
	require.Zero(t, summary.AvgValue)
	require.Zero(t, summary.MinValue)
	require.Zero(t, summary.MaxValue)
}

func TestDistributionFromTicketsNullGroup(t *testing.T) {
	billing := "billing"
	with := ticketAt(time.Now())
	with.Category = &billing
	without := ticketAt(time.Now())

	dist := analytics.DistributionFromTickets([]domain.Ticket{with, without, without}, analytics.FieldCategory)
	require.Equal(t, int64(1), dist["billing"])
	require.Equal(t, int64(2), dist[analytics.NullGroup])
}

func TestSentimentBreakdownFromTickets(t *testing.T) {
	base := time.Now()
	scores := []*float64{floatPtr(0.5), floatPtr(-0.3), floatPtr(0.0), floatPtr(0.31), floatPtr(-0.31), nil}
	tickets := make([]domain.Ticket, 0, len(scores))
	for _, score := range scores {
		tk := ticketAt(base)
		tk.SentimentScore = score
		tickets = append(tickets, tk)
	}

	breakdown := analytics.SentimentBreakdownFromTickets(tickets)
	require.Equal(t, int64(2), breakdown[analytics.SentimentPositive])
	require.Equal(t, int64(2), breakdown[analytics.SentimentNeutral])
	require.Equal(t, int64(1), breakdown[analytics.SentimentNegative])
}

func TestDurationSamplesFromTickets(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	responded := ticketAt(base)
	responded.FirstResponseAt = timePtr(base.Add(30 * time.Minute))
	silent := ticketAt(base)

	samples := analytics.DurationSamplesFromTickets([]domain.Ticket{responded, silent}, analytics.MetricResponseTime)
	require.Len(t, samples, 1)
	require.InDelta(t, 0.5, samples[0], 1e-9)
}

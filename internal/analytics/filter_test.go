package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestFilterMatches(t *testing.T) {
	billing := "billing"
	agent := "agent-1"
	ticket := &domain.Ticket{
		Status:     domain.TicketStatusOpen,
		Priority:   domain.TicketPriorityHigh,
		Channel:    domain.TicketChannelEmail,
		Category:   &billing,
		AssignedTo: &agent,
	}

	tests := []struct {
		name   string
		filter analytics.Filter
		want   bool
	}{
		{name: "zero filter matches all", filter: analytics.Filter{}, want: true},
		{
			name:   "member match within key",
			filter: analytics.Filter{Statuses: []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusOpen}},
			want:   true,
		},
		{
			name:   "member miss within key",
			filter: analytics.Filter{Statuses: []domain.TicketStatus{domain.TicketStatusClosed}},
			want:   false,
		},
		{
			name: "keys combine conjunctively",
			filter: analytics.Filter{
				Statuses:   []domain.TicketStatus{domain.TicketStatusOpen},
				Priorities: []domain.TicketPriority{domain.TicketPriorityLow},
			},
			want: false,
		},
		{
			name:   "category match",
			filter: analytics.Filter{Categories: []string{"billing", "bugs"}},
			want:   true,
		},
		{
			name:   "assignee match",
			filter: analytics.Filter{AssignedTo: strPtr("agent-1")},
			want:   true,
		},
		{
			name:   "assignee miss",
			filter: analytics.Filter{AssignedTo: strPtr("agent-2")},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Matches(ticket))
		})
	}
}

func TestFilterMatchesNilCategory(t *testing.T) {
	ticket := &domain.Ticket{Status: domain.TicketStatusOpen}
	filter := analytics.Filter{Categories: []string{"billing"}}
	require.False(t, filter.Matches(ticket))
}

func TestFilterCanonicalOrderIndependent(t *testing.T) {
	a := analytics.Filter{
		Statuses:   []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusResolved},
		Priorities: []domain.TicketPriority{domain.TicketPriorityUrgent, domain.TicketPriorityLow},
		Categories: []string{"billing", "bugs"},
	}
	b := analytics.Filter{
		Statuses:   []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusOpen},
		Priorities: []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityUrgent},
		Categories: []string{"bugs", "billing"},
	}
	require.Equal(t, a.Canonical(), b.Canonical())
	require.NotEmpty(t, a.Canonical())
}

func TestFilterCanonicalDistinguishesFilters(t *testing.T) {
	a := analytics.Filter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}}
	b := analytics.Filter{Statuses: []domain.TicketStatus{domain.TicketStatusClosed}}
	require.NotEqual(t, a.Canonical(), b.Canonical())
	require.Empty(t, analytics.Filter{}.Canonical())
}

package analytics

import (
	"sort"
	"strings"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// Filter narrows a ticket set. Keys combine conjunctively; members within a
// key combine disjunctively. A zero-value key matches everything. Setting a
// key replaces any prior value for it, never appends.
type Filter struct {
	Statuses   []domain.TicketStatus   `json:"status,omitempty"`
	Priorities []domain.TicketPriority `json:"priority,omitempty"`
	Channels   []domain.TicketChannel  `json:"channel,omitempty"`
	Categories []string                `json:"category,omitempty"`
	AssignedTo *string                 `json:"assigned_to,omitempty"`
}

// IsZero reports whether the filter matches all tickets.
func (f Filter) IsZero() bool {
	return len(f.Statuses) == 0 && len(f.Priorities) == 0 && len(f.Channels) == 0 &&
		len(f.Categories) == 0 && f.AssignedTo == nil
}

// Matches evaluates the filter predicate against a ticket.
func (f Filter) Matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Channels) > 0 && !containsChannel(f.Channels, t.Channel) {
		return false
	}
	if len(f.Categories) > 0 {
		if t.Category == nil || !containsString(f.Categories, *t.Category) {
			return false
		}
	}
	if f.AssignedTo != nil {
		if t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo {
			return false
		}
	}
	return true
}

// Canonical serializes the filter into a deterministic string so that
// semantically equal filters always produce identical cache keys, regardless
// of how the member slices were ordered at construction.
func (f Filter) Canonical() string {
	var parts []string
	if len(f.Statuses) > 0 {
		parts = append(parts, "status="+sortedJoin(statusStrings(f.Statuses)))
	}
	if len(f.Priorities) > 0 {
		parts = append(parts, "priority="+sortedJoin(priorityStrings(f.Priorities)))
	}
	if len(f.Channels) > 0 {
		parts = append(parts, "channel="+sortedJoin(channelStrings(f.Channels)))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, "category="+sortedJoin(append([]string(nil), f.Categories...)))
	}
	if f.AssignedTo != nil {
		parts = append(parts, "assigned_to="+*f.AssignedTo)
	}
	return strings.Join(parts, "&")
}

func sortedJoin(values []string) string {
	sort.Strings(values)
	return strings.Join(values, ",")
}

func statusStrings(in []domain.TicketStatus) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func priorityStrings(in []domain.TicketPriority) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func channelStrings(in []domain.TicketChannel) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func containsStatus(set []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsChannel(set []domain.TicketChannel, v domain.TicketChannel) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

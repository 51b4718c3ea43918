package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketChannel identifies the ingestion source of a ticket.
type TicketChannel string

const (
	TicketChannelEmail   TicketChannel = "email"
	TicketChannelSlack   TicketChannel = "slack"
	TicketChannelZendesk TicketChannel = "zendesk"
	TicketChannelAPI     TicketChannel = "api"
	TicketChannelWeb     TicketChannel = "web"
)

// Ticket is the aggregate for support requests. A ticket belongs to exactly
// one organization; present timestamps are monotonic
// (CreatedAt <= FirstResponseAt <= ResolvedAt).
type Ticket struct {
	ID              string
	ExternalID      *string
	OrganizationID  int64
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Channel         TicketChannel
	Category        *string
	CustomerEmail   string
	CustomerName    *string
	AssignedTo      *string
	SentimentScore  *float64
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
}

package events

import (
	"time"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketFirstResponse   EventType = "ticket_first_response"
	EventTicketResolved        EventType = "ticket_resolved"
)

// Event represents a ticket mutation emitted by services after the change is
// durably applied. OrganizationID scopes downstream cache invalidation.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	TicketID       string      `json:"ticket_id"`
	OrganizationID int64       `json:"organization_id"`
	ActorID        *string     `json:"actor_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Channel  domain.TicketChannel  `json:"channel"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketStatusChangedPayload payload. EnteredTerminal is set when the
// transition moved the ticket into a terminal state.
type TicketStatusChangedPayload struct {
	OldStatus       domain.TicketStatus `json:"old_status"`
	NewStatus       domain.TicketStatus `json:"new_status"`
	EnteredTerminal bool                `json:"entered_terminal"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// TicketFirstResponsePayload payload.
type TicketFirstResponsePayload struct {
	FirstResponseAt time.Time `json:"first_response_at"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ResolvedAt time.Time `json:"resolved_at"`
}

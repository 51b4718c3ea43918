package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/events"
	"github.com/spec-kit/support-analytics/internal/repository"
)

var (
	// ErrInvalidTransition rejects a status change the lifecycle does not
	// allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyResponded rejects a second first-response mark.
	ErrAlreadyResponded = errors.New("first response already recorded")
)

// TicketService coordinates ticket workflows. Every mutation publishes an
// event after the row is durably written, which is what keeps downstream
// cache invalidation ordered behind the change it reacts to.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher}
}

// TicketCreateInput describes ticket creation payload. CreatedAt is optional
// and serves backfill imports; zero means "now".
type TicketCreateInput struct {
	ExternalID     *string
	Title          string
	Description    string
	Priority       domain.TicketPriority
	Channel        domain.TicketChannel
	Category       *string
	CustomerEmail  string
	CustomerName   *string
	SentimentScore *float64
	Tags           []string
	CreatedAt      time.Time
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Channels    []domain.TicketChannel
	Categories  []string
	AssignedTo  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CreateTicket creates a ticket within the organization.
func (s *TicketService) CreateTicket(ctx context.Context, organizationID int64, actorID *string, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		ExternalID:     input.ExternalID,
		OrganizationID: organizationID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusOpen,
		Priority:       input.Priority,
		Channel:        input.Channel,
		Category:       input.Category,
		CustomerEmail:  strings.TrimSpace(input.CustomerEmail),
		CustomerName:   input.CustomerName,
		SentimentScore: input.SentimentScore,
		Tags:           input.Tags,
		CreatedAt:      input.CreatedAt,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Channel == "" {
		ticket.Channel = domain.TicketChannelAPI
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketCreated,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketCreatedPayload{
			Channel:  ticket.Channel,
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets matching the filter within the organization.
func (s *TicketService) ListTickets(ctx context.Context, organizationID int64, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, organizationID, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Channels:    filter.Channels,
		Categories:  filter.Categories,
		AssignedTo:  filter.AssignedTo,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// GetTicket fetches one ticket within the organization.
func (s *TicketService) GetTicket(ctx context.Context, organizationID int64, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, organizationID, ticketID)
}

// UpdateStatus moves a ticket through its lifecycle. Entering resolved stamps
// ResolvedAt (and FirstResponseAt when it was never recorded, so resolution
// implies a response); entering closed stamps ClosedAt.
func (s *TicketService) UpdateStatus(ctx context.Context, organizationID int64, actorID *string, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, organizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	oldStatus := ticket.Status
	ticket.Status = newStatus
	var resolvedNow bool
	switch newStatus {
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
			resolvedNow = true
		}
		if ticket.FirstResponseAt == nil {
			ticket.FirstResponseAt = &now
		}
	case domain.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			ticket.ClosedAt = &now
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketStatusChanged,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			EnteredTerminal: newStatus.IsTerminal() && !oldStatus.IsTerminal(),
		},
	})
	if resolvedNow {
		s.publishEvent(ctx, events.Event{
			Type:           events.EventTicketResolved,
			TicketID:       ticket.ID,
			OrganizationID: ticket.OrganizationID,
			ActorID:        actorID,
			Payload:        events.TicketResolvedPayload{ResolvedAt: *ticket.ResolvedAt},
		})
	}
	return ticket, nil
}

// UpdatePriority changes ticket priority.
func (s *TicketService) UpdatePriority(ctx context.Context, organizationID int64, actorID *string, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, organizationID, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	if oldPriority == newPriority {
		return ticket, nil
	}
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketPriorityChanged,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// AssignTicket sets or clears the assignee.
func (s *TicketService) AssignTicket(ctx context.Context, organizationID int64, actorID *string, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, organizationID, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AssignedTo = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketAssigned,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload:        events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return ticket, nil
}

// MarkFirstResponse records the first agent response. The timestamp is set
// once; later calls fail so response-time metrics stay stable.
func (s *TicketService) MarkFirstResponse(ctx context.Context, organizationID int64, actorID *string, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, organizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.FirstResponseAt != nil {
		return nil, ErrAlreadyResponded
	}
	now := time.Now().UTC()
	ticket.FirstResponseAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketFirstResponse,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload:        events.TicketFirstResponsePayload{FirstResponseAt: now},
	})
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

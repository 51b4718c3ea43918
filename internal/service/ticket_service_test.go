package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/events"
	"github.com/spec-kit/support-analytics/internal/repository"
	"github.com/spec-kit/support-analytics/internal/service"
)

// memTicketRepo keeps tickets in a map, enough to drive the service.
type memTicketRepo struct {
	tickets map[string]*domain.Ticket
	nextID  int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = fmt.Sprintf("t-%d", r.nextID)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	ticket.UpdatedAt = time.Now().UTC()
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, organizationID int64, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok || ticket.OrganizationID != organizationID {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, organizationID int64, _ repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.OrganizationID == organizationID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *memTicketRepo) InRange(_ context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.OrganizationID != organizationID {
			continue
		}
		if ticket.CreatedAt.Before(start) || !ticket.CreatedAt.Before(end) {
			continue
		}
		if filter.Matches(ticket) {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

// captureDispatcher records published events in order.
type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateTicketDefaultsAndEvent(t *testing.T) {
	repo := newMemTicketRepo()
	dispatcher := &captureDispatcher{}
	svc := service.NewTicketService(repo, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "  printer on fire  ",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "printer on fire", ticket.Title)
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.Equal(t, domain.TicketChannelAPI, ticket.Channel)

	require.Equal(t, []events.EventType{events.EventTicketCreated}, dispatcher.types())
	require.Equal(t, int64(1), dispatcher.published[0].OrganizationID)
	require.NotEmpty(t, dispatcher.published[0].ID)
	require.False(t, dispatcher.published[0].Timestamp.IsZero())
}

func TestUpdateStatusLifecycle(t *testing.T) {
	repo := newMemTicketRepo()
	dispatcher := &captureDispatcher{}
	svc := service.NewTicketService(repo, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), 1, nil, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.FirstResponseAt, "resolution implies a response")

	require.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketResolved,
	}, dispatcher.types())

	payload, ok := dispatcher.published[1].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	require.True(t, payload.EnteredTerminal)
	require.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	repo := newMemTicketRepo()
	svc := service.NewTicketService(repo, &captureDispatcher{})

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 1, nil, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 1, nil, ticket.ID, domain.TicketStatusOpen)
	require.ErrorIs(t, err, service.ErrInvalidTransition, "closed is terminal")
}

func TestUpdateStatusScopedToOrganization(t *testing.T) {
	repo := newMemTicketRepo()
	svc := service.NewTicketService(repo, &captureDispatcher{})

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 2, nil, ticket.ID, domain.TicketStatusResolved)
	require.Error(t, err, "another organization must not see the ticket")
}

func TestMarkFirstResponseOnce(t *testing.T) {
	repo := newMemTicketRepo()
	dispatcher := &captureDispatcher{}
	svc := service.NewTicketService(repo, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)

	marked, err := svc.MarkFirstResponse(context.Background(), 1, nil, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.FirstResponseAt)

	_, err = svc.MarkFirstResponse(context.Background(), 1, nil, ticket.ID)
	require.ErrorIs(t, err, service.ErrAlreadyResponded)

	require.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketFirstResponse,
	}, dispatcher.types())
}

func TestUpdatePriorityNoopSkipsEvent(t *testing.T) {
	repo := newMemTicketRepo()
	dispatcher := &captureDispatcher{}
	svc := service.NewTicketService(repo, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
		Priority:      domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	_, err = svc.UpdatePriority(context.Background(), 1, nil, ticket.ID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.Equal(t, []events.EventType{events.EventTicketCreated}, dispatcher.types())

	_, err = svc.UpdatePriority(context.Background(), 1, nil, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPriorityChanged,
	}, dispatcher.types())
}

func TestAssignTicketPublishesEvent(t *testing.T) {
	repo := newMemTicketRepo()
	dispatcher := &captureDispatcher{}
	svc := service.NewTicketService(repo, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), 1, nil, service.TicketCreateInput{
		Title:         "t",
		CustomerEmail: "a@example.com",
	})
	require.NoError(t, err)

	agent := "agent-1"
	assigned, err := svc.AssignTicket(context.Background(), 1, nil, ticket.ID, &agent)
	require.NoError(t, err)
	require.Equal(t, &agent, assigned.AssignedTo)
	require.Equal(t, events.EventTicketAssigned, dispatcher.published[1].Type)
}

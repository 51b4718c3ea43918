package dto

import (
	"time"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// CreateTicketRequest payload. CreatedAt is optional and serves imports of
// historical tickets.
type CreateTicketRequest struct {
	ExternalID     *string               `json:"external_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	Channel        domain.TicketChannel  `json:"channel"`
	Category       *string               `json:"category"`
	CustomerEmail  string                `json:"customer_email"`
	CustomerName   *string               `json:"customer_name"`
	SentimentScore *float64              `json:"sentiment_score"`
	Tags           []string              `json:"tags"`
	CreatedAt      *time.Time            `json:"created_at"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload. A null assignee unassigns.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse is the caller-facing ticket shape.
type TicketResponse struct {
	ID              string                `json:"id"`
	ExternalID      *string               `json:"external_id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Channel         domain.TicketChannel  `json:"channel"`
	Category        *string               `json:"category"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerName    *string               `json:"customer_name"`
	AssignedTo      *string               `json:"assigned_to"`
	SentimentScore  *float64              `json:"sentiment_score"`
	Tags            []string              `json:"tags"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FirstResponseAt *time.Time            `json:"first_response_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	ClosedAt        *time.Time            `json:"closed_at"`
}

// TicketFromDomain maps a ticket to its response shape.
func TicketFromDomain(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		ExternalID:      t.ExternalID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Channel:         t.Channel,
		Category:        t.Category,
		CustomerEmail:   t.CustomerEmail,
		CustomerName:    t.CustomerName,
		AssignedTo:      t.AssignedTo,
		SentimentScore:  t.SentimentScore,
		Tags:            t.Tags,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		FirstResponseAt: t.FirstResponseAt,
		ResolvedAt:      t.ResolvedAt,
		ClosedAt:        t.ClosedAt,
	}
}

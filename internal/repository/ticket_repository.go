package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/domain"
)

const ticketColumns = `id, external_id, organization_id, title, description, status, priority, channel,
               category, customer_email, customer_name, assigned_to, sentiment_score, tags,
               created_at, updated_at, first_response_at, resolved_at, closed_at`

// TicketFilter captures listing parameters.
type TicketFilter struct {
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

// TicketRepository encapsulates ticket persistence. Every read is scoped to
// one organization.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, organizationID int64, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, organizationID int64, filter TicketFilter) ([]domain.Ticket, error)
	InRange(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_id, organization_id, title, description, status, priority, channel,
                             category, customer_email, customer_name, assigned_to, sentiment_score, tags, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,COALESCE($14, NOW()))
        RETURNING id, created_at, updated_at`
	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalID,
		ticket.OrganizationID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Channel,
		ticket.Category,
		ticket.CustomerEmail,
		ticket.CustomerName,
		ticket.AssignedTo,
		ticket.SentimentScore,
		ticket.Tags,
		createdAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, channel=$5, category=$6,
            assigned_to=$7, sentiment_score=$8, tags=$9, first_response_at=$10, resolved_at=$11,
            closed_at=$12, updated_at=NOW()
        WHERE id=$13 AND organization_id=$14`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Channel,
		ticket.Category,
		ticket.AssignedTo,
		ticket.SentimentScore,
		ticket.Tags,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.OrganizationID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, organizationID int64, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 AND organization_id=$2`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id, organizationID).Scan(ticketScanTargets(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, organizationID int64, filter TicketFilter) ([]domain.Ticket, error) {
	args := []any{organizationID}
	clauses := []string{"organization_id=$1"}

	appendIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, value := range values {
			args = append(args, value)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}

	appendIn("status", statusValues(filter.Statuses))
	appendIn("priority", priorityValues(filter.Priorities))
	appendIn("channel", channelValues(filter.Channels))
	appendIn("category", filter.Categories)

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// InRange returns every ticket of the organization created in the half-open
// interval [start, end) that matches the filter, without pagination. The
// scan analytics backend aggregates over this result at the application
// layer.
func (r *ticketRepository) InRange(ctx context.Context, organizationID int64, start, end time.Time, filter analytics.Filter) ([]domain.Ticket, error) {
	args := []any{organizationID, start, end}
	clauses := []string{"organization_id=$1", "created_at >= $2", "created_at < $3"}
	appendAnalyticsFilter(&clauses, &args, filter)

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func ticketScanTargets(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.ExternalID,
		&t.OrganizationID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.Channel,
		&t.Category,
		&t.CustomerEmail,
		&t.CustomerName,
		&t.AssignedTo,
		&t.SentimentScore,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.FirstResponseAt,
		&t.ResolvedAt,
		&t.ClosedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func statusValues(in []domain.TicketStatus) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func priorityValues(in []domain.TicketPriority) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func channelValues(in []domain.TicketChannel) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

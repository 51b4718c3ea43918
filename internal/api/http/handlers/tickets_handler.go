package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-analytics/internal/api/dto"
	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/service"
	apperrors "github.com/spec-kit/support-analytics/pkg/util"
)

// TicketsHandler manages ticket endpoints. All operations are scoped to the
// caller's organization.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return apperrors.NewValidationError("title and customer_email required", nil)
	}

	input := service.TicketCreateInput{
		ExternalID:     req.ExternalID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Channel:        req.Channel,
		Category:       req.Category,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		SentimentScore: req.SentimentScore,
		Tags:           req.Tags,
	}
	if req.CreatedAt != nil {
		input.CreatedAt = *req.CreatedAt
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.OrganizationID, actorID(principal), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketListQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), principal.OrganizationID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal.OrganizationID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), principal.OrganizationID, actorID(principal), c.Params("id"), req.Status)
	if err != nil {
		if err == service.ErrInvalidTransition {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Priority == "" {
		return apperrors.NewValidationError("priority required", nil)
	}
	ticket, err := h.service.UpdatePriority(c.UserContext(), principal.OrganizationID, actorID(principal), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// AssignTicket PATCH /tickets/:id/assignee.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), principal.OrganizationID, actorID(principal), c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// MarkFirstResponse POST /tickets/:id/first-response.
func (h *TicketsHandler) MarkFirstResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.MarkFirstResponse(c.UserContext(), principal.OrganizationID, actorID(principal), c.Params("id"))
	if err != nil {
		if err == service.ErrAlreadyResponded {
			return apperrors.NewConflict(err.Error(), nil)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

func actorID(principal *auth.Principal) *string {
	if principal == nil || principal.User == nil {
		return nil
	}
	id := principal.User.ID
	return &id
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Limit:  50,
		Offset: 0,
	}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(raw))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(raw))
	}
	for _, raw := range splitCSV(c.Query("channel")) {
		filter.Channels = append(filter.Channels, domain.TicketChannel(raw))
	}
	filter.Categories = splitCSV(c.Query("category"))
	if raw := c.Query("assigned_to"); raw != "" {
		filter.AssignedTo = &raw
	}
	if raw := c.Query("search"); raw != "" {
		filter.SearchTerm = &raw
	}
	if raw := c.Query("created_from"); raw != "" {
		if t, err := parseDate(raw); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if raw := c.Query("created_to"); raw != "" {
		if t, err := parseDate(raw); err == nil {
			filter.CreatedTo = &t
		}
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	return filter
}

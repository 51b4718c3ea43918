package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-analytics/internal/api/dto"
	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/service"
	apperrors "github.com/spec-kit/support-analytics/pkg/util"
)

// UsersHandler exposes auth and account endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// RegisterOrganization POST /auth/organizations/register.
func (h *UsersHandler) RegisterOrganization(c *fiber.Ctx) error {
	var req dto.RegisterOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OrganizationName == "" || req.Slug == "" || req.AdminEmail == "" || req.AdminPassword == "" {
		return apperrors.NewValidationError("organization_name, slug, admin_email, admin_password required", nil)
	}

	org, user, token, err := h.auth.RegisterOrganization(c.UserContext(), service.RegisterOrganizationInput{
		OrganizationName: req.OrganizationName,
		Slug:             req.Slug,
		AdminName:        req.AdminName,
		AdminEmail:       req.AdminEmail,
		AdminPassword:    req.AdminPassword,
	})
	if err != nil {
		return apperrors.NewConflict(err.Error(), nil)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"organization": fiber.Map{
				"id":   org.ID,
				"name": org.Name,
				"slug": org.Slug,
			},
			"user":  dto.UserFromDomain(user),
			"token": token,
		},
	})
}

// RegisterUser POST /auth/users/register. Admin only; the new user joins the
// caller's organization.
func (h *UsersHandler) RegisterUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	user, token, err := h.auth.RegisterUser(c.UserContext(), principal.OrganizationID, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return apperrors.NewConflict(err.Error(), nil)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user":  dto.UserFromDomain(user),
			"token": token,
		},
	})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":  dto.UserFromDomain(user),
			"token": token,
		},
	})
}

// ChangePassword POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if err == service.ErrInvalidCredentials {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

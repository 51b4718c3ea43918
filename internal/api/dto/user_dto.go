package dto

import (
	"time"

	"github.com/spec-kit/support-analytics/internal/domain"
)

// RegisterOrganizationRequest creates an organization and its admin.
type RegisterOrganizationRequest struct {
	OrganizationName string `json:"organization_name"`
	Slug             string `json:"slug"`
	AdminName        string `json:"admin_name"`
	AdminEmail       string `json:"admin_email"`
	AdminPassword    string `json:"admin_password"`
}

// RegisterUserRequest creates a user inside the caller's organization.
type RegisterUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse is the caller-facing user shape.
type UserResponse struct {
	ID             string          `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           domain.UserRole `json:"role"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UserFromDomain maps a user to its response shape.
func UserFromDomain(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		CreatedAt:      user.CreatedAt,
	}
}

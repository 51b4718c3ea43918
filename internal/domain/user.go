package domain

import "time"

// UserRole controls access to organization-level operations.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
)

// User is a member of an organization who works tickets and queries
// analytics.
type User struct {
	ID             string
	OrganizationID int64
	Name           string
	Email          string
	PasswordHash   string
	Role           UserRole
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

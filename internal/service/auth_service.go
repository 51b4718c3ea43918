package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-analytics/internal/auth"
	"github.com/spec-kit/support-analytics/internal/config"
	"github.com/spec-kit/support-analytics/internal/domain"
	"github.com/spec-kit/support-analytics/internal/repository"
)

// ErrInvalidCredentials rejects a login with a wrong password without
// disclosing which part failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService coordinates organization onboarding and login flows.
type AuthService struct {
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, orgs repository.OrganizationRepository) *AuthService {
	return &AuthService{
		users:      users,
		orgs:       orgs,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterOrganizationInput bundles the onboarding payload: a new
// organization plus its first admin user.
type RegisterOrganizationInput struct {
	OrganizationName string
	Slug             string
	AdminName        string
	AdminEmail       string
	AdminPassword    string
}

// RegisterOrganization creates an organization together with its admin and
// returns a ready-to-use token.
func (s *AuthService) RegisterOrganization(ctx context.Context, input RegisterOrganizationInput) (*domain.Organization, *domain.User, string, error) {
	if _, err := s.orgs.GetBySlug(ctx, input.Slug); err == nil {
		return nil, nil, "", errors.New("slug already taken")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, "", err
	}
	if _, err := s.users.GetByEmail(ctx, input.AdminEmail); err == nil {
		return nil, nil, "", errors.New("email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, "", err
	}

	org := &domain.Organization{
		Name:     strings.TrimSpace(input.OrganizationName),
		Slug:     strings.TrimSpace(input.Slug),
		IsActive: true,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, nil, "", err
	}

	user, token, err := s.createUser(ctx, org.ID, input.AdminName, input.AdminEmail, input.AdminPassword, domain.UserRoleAdmin)
	if err != nil {
		return nil, nil, "", err
	}
	return org, user, token, nil
}

// RegisterUser creates an agent within an existing organization.
func (s *AuthService) RegisterUser(ctx context.Context, organizationID int64, name, email, password string, role domain.UserRole) (*domain.User, string, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", errors.New("email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}
	if role == "" {
		role = domain.UserRoleAgent
	}
	return s.createUser(ctx, organizationID, name, email, password, role)
}

func (s *AuthService) createUser(ctx context.Context, organizationID int64, name, email, password string, role domain.UserRole) (*domain.User, string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}
	user := &domain.User{
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(name),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:   hash,
		Role:           role,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, _, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, _, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

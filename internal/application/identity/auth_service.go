// Package identity authenticates admins, brokers and clients and issues
// role-scoped access tokens.
package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/auth"
)

var errInvalidCredentials = shared.NewDomainError("UNAUTHORIZED", "Invalid email or password")

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateToken(p identity.Principal) (*auth.Token, error)
}

// AuthServiceDeps wires AuthService
type AuthServiceDeps struct {
	Admins    identity.AdminRepository
	Brokers   broker.Repository
	Clients   client.Repository
	Activity  analytics.ActivityRepository
	Tokens    TokenIssuer
	Blacklist auth.TokenBlacklist
	Logger    *zap.Logger
}

// AuthService handles authentication operations for all three portals
type AuthService struct {
	admins    identity.AdminRepository
	brokers   broker.Repository
	clients   client.Repository
	activity  analytics.ActivityRepository
	tokens    TokenIssuer
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(deps AuthServiceDeps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		admins:    deps.Admins,
		brokers:   deps.Brokers,
		clients:   deps.Clients,
		activity:  deps.Activity,
		tokens:    deps.Tokens,
		blacklist: deps.Blacklist,
		logger:    logger.Named("auth"),
	}
}

// AdminLogin authenticates a back-office operator
func (s *AuthService) AdminLogin(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Admin login attempt", zap.String("email", email))

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Admin not found during login", zap.String("email", email))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !admin.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid admin password attempt", zap.String("email", email))
		return nil, errInvalidCredentials
	}
	if !admin.CanLogin() {
		s.logger.Warn("Login attempt for deactivated admin", zap.String("email", email))
		return nil, shared.NewDomainError("FORBIDDEN", "Account has been deactivated")
	}

	result, err := s.issue(admin.Principal())
	if err != nil {
		return nil, err
	}

	admin.RecordLogin()
	if err := s.admins.Save(ctx, admin); err != nil {
		s.logger.Error("Failed to update admin after successful login", zap.Error(err))
	}
	if s.activity != nil {
		entry := analytics.NewActivityLog(analytics.ActionAdminLogin, "admin", &admin.ID,
			analytics.Actor{Role: identity.PrincipalRoleAdmin.String(), ID: &admin.ID},
			map[string]any{"ip": input.IP})
		if err := s.activity.Create(ctx, entry); err != nil {
			s.logger.Warn("Failed to record activity", zap.Error(err))
		}
	}

	s.logger.Info("Admin logged in successfully",
		zap.String("email", email),
		zap.String("admin_id", admin.ID.String()))
	return result, nil
}

// BrokerLogin authenticates a broker with either the portal password or the API secret.
// Only ACTIVE brokers may log in.
func (s *AuthService) BrokerLogin(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Broker login attempt", zap.String("email", email))

	b, err := s.brokers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !b.Authenticate(input.Password) {
		s.logger.Warn("Invalid broker credential attempt", zap.String("email", email))
		return nil, errInvalidCredentials
	}
	if !b.IsActive() {
		s.logger.Warn("Login attempt for inactive broker",
			zap.String("email", email),
			zap.String("status", b.Status.String()))
		return nil, shared.NewDomainError("FORBIDDEN", "Broker account is not active")
	}

	result, err := s.issue(b.Principal())
	if err != nil {
		return nil, err
	}
	b.RecordLogin()
	if err := s.brokers.Save(ctx, b); err != nil {
		s.logger.Error("Failed to update broker after successful login", zap.Error(err))
	}

	s.logger.Info("Broker logged in successfully", zap.String("broker_id", b.ID.String()))
	return result, nil
}

// ClientLogin authenticates a client with the portal password set at checkout
// or through a reset.
func (s *AuthService) ClientLogin(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Client login attempt", zap.String("email", email))

	c, err := s.clients.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !c.HasPortalAccess() || !c.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid client credential attempt", zap.String("email", email))
		return nil, errInvalidCredentials
	}

	result, err := s.issue(c.Principal())
	if err != nil {
		return nil, err
	}
	c.RecordLogin()
	if err := s.clients.Save(ctx, c); err != nil {
		s.logger.Error("Failed to update client after successful login", zap.Error(err))
	}

	s.logger.Info("Client logged in successfully", zap.String("client_id", c.ID.String()))
	return result, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.TokenJTI == "" {
		return nil
	}
	if s.blacklist == nil {
		s.logger.Warn("Token blacklist not configured, logout is client-side only")
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenExpiresIn); err != nil {
		s.logger.Error("Failed to blacklist token", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to complete logout")
	}
	s.logger.Info("Principal logged out", zap.String("principal_id", input.PrincipalID.String()))
	return nil
}

// EnsureBootstrapAdmin creates the first SUPER_ADMIN when the email is not yet
// registered. It is a no-op when email is empty.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := s.admins.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	admin, err := identity.NewAdmin(email, name, password, identity.AdminRoleSuperAdmin)
	if err != nil {
		return err
	}
	if err := s.admins.Save(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("Bootstrap admin created", zap.String("email", email))
	return nil
}

func (s *AuthService) issue(p identity.Principal) (*LoginResult, error) {
	token, err := s.tokens.GenerateToken(p)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}
	return &LoginResult{
		Token:     token.AccessToken,
		ExpiresAt: token.ExpiresAt,
		TokenType: token.TokenType,
		Principal: toPrincipalInfo(p),
	}, nil
}

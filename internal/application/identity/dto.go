package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradelinemarket/backend/internal/domain/identity"
)

// LoginInput contains credentials for any portal login
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// PrincipalInfo is the logged-in account returned with a token
type PrincipalInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	AdminRole string    `json:"admin_role,omitempty"`
}

func toPrincipalInfo(p identity.Principal) PrincipalInfo {
	return PrincipalInfo{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		Role:      p.Role.String(),
		AdminRole: string(p.AdminRole),
	}
}

// LoginResult is returned on successful login
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	TokenType string        `json:"token_type"`
	Principal PrincipalInfo `json:"user"`
}

// LogoutInput identifies the token being revoked
type LogoutInput struct {
	TokenJTI       string
	TokenExpiresIn time.Duration
	PrincipalID    uuid.UUID
}

package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// AdminRole is the back-office privilege level
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "SUPER_ADMIN"
	AdminRoleAdmin      AdminRole = "ADMIN"
)

// IsValid checks if the admin role is valid
func (r AdminRole) IsValid() bool {
	return r == AdminRoleSuperAdmin || r == AdminRoleAdmin
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the basic shape of an email address
func ValidateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

// Admin is a back-office operator
type Admin struct {
	shared.BaseEntity
	Email        string
	Name         string
	PasswordHash string
	Role         AdminRole
	IsActive     bool
	LastLoginAt  *time.Time
}

// NewAdmin creates an active admin with a hashed password
func NewAdmin(email, name, password string, role AdminRole) (*Admin, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Invalid admin role")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	return &Admin{
		BaseEntity:   shared.NewBaseEntity(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}

// VerifyPassword checks the admin password
func (a *Admin) VerifyPassword(password string) bool {
	return CheckPassword(a.PasswordHash, password)
}

// CanLogin reports whether the admin may authenticate
func (a *Admin) CanLogin() bool {
	return a.IsActive
}

// RecordLogin stamps the last login time
func (a *Admin) RecordLogin() {
	now := time.Now()
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

// Deactivate blocks future logins
func (a *Admin) Deactivate() {
	a.IsActive = false
	a.Touch()
}

// Principal returns the authenticated view of the admin
func (a *Admin) Principal() Principal {
	return Principal{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      PrincipalRoleAdmin,
		AdminRole: a.Role,
	}
}

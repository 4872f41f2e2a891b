// Package identity holds back-office operators and the role model shared by
// the admin, broker and client portals.
package identity

import (
	"github.com/google/uuid"
)

// PrincipalRole identifies which portal a principal authenticated through
type PrincipalRole string

const (
	PrincipalRoleAdmin  PrincipalRole = "admin"
	PrincipalRoleBroker PrincipalRole = "broker"
	PrincipalRoleClient PrincipalRole = "client"
)

// IsValid checks if the role is valid
func (r PrincipalRole) IsValid() bool {
	switch r {
	case PrincipalRoleAdmin, PrincipalRoleBroker, PrincipalRoleClient:
		return true
	}
	return false
}

// String returns the string representation
func (r PrincipalRole) String() string {
	return string(r)
}

// Principal is an authenticated caller of any portal
type Principal struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  PrincipalRole
	// AdminRole is set only for admin principals
	AdminRole AdminRole
}

// IsAdmin reports whether the principal is a back-office operator
func (p Principal) IsAdmin() bool {
	return p.Role == PrincipalRoleAdmin
}

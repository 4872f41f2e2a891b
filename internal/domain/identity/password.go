package identity

import (
	"strings"

	"github.com/tradelinemarket/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is used for every stored password and API secret hash
const BcryptCost = 10

// MinPasswordLength applies to admin and client portal passwords
const MinPasswordLength = 8

// HashPassword hashes a password or secret with bcrypt
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext value against a bcrypt hash.
// An empty hash never matches.
func CheckPassword(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePassword enforces the portal password policy
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

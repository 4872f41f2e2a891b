package identity

import (
	"context"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for admin persistence
type AdminRepository interface {
	// FindByID finds an admin by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)

	// FindByEmail finds an admin by normalized email
	FindByEmail(ctx context.Context, email string) (*Admin, error)

	// Save creates or updates an admin
	Save(ctx context.Context, admin *Admin) error
}

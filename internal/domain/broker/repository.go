package broker

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// Repository defines the interface for broker persistence
type Repository interface {
	// FindByID finds a broker by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Broker, error)

	// FindByEmail finds a broker by normalized email
	FindByEmail(ctx context.Context, email string) (*Broker, error)

	// FindByAPIKey finds a broker by its public API key
	FindByAPIKey(ctx context.Context, apiKey string) (*Broker, error)

	// FindAll lists brokers. Filters: "status".
	FindAll(ctx context.Context, filter shared.Filter) ([]Broker, int64, error)

	// Save creates or updates a broker
	Save(ctx context.Context, b *Broker) error

	// ExistsByEmail checks if an email is already registered
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CountByStatus counts brokers; an empty status counts all
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

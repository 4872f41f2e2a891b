package client

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for client persistence
type Repository interface {
	// FindByID finds a client by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindByEmail finds a client by normalized email
	FindByEmail(ctx context.Context, email string) (*Client, error)

	// FindByResetToken finds the client holding a reset token
	FindByResetToken(ctx context.Context, token string) (*Client, error)

	// Save creates or updates a client
	Save(ctx context.Context, c *Client) error
}

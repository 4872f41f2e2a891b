package client

import (
	"context"
	"time"
)

// DocumentStorage stores KYC documents in object storage
type DocumentStorage interface {
	// Upload writes data under key
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// PresignGet returns a time-limited download URL
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)

	// Delete removes the object
	Delete(ctx context.Context, key string) error
}

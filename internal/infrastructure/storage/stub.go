package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	clientapp "github.com/tradelinemarket/backend/internal/application/client"
)

// StubDocumentStorage keeps documents in memory for development when no
// object storage is configured. URLs point at BaseURL and are not served.
type StubDocumentStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

var _ clientapp.DocumentStorage = (*StubDocumentStorage)(nil)

// NewStubDocumentStorage creates a new StubDocumentStorage
func NewStubDocumentStorage() *StubDocumentStorage {
	return &StubDocumentStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Upload keeps a copy of data
func (s *StubDocumentStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// PresignGet returns a fake URL carrying the expiry
func (s *StubDocumentStorage) PresignGet(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.BaseURL + "/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Delete drops the object
func (s *StubDocumentStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Object returns a stored object, for tests and local inspection
func (s *StubDocumentStorage) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

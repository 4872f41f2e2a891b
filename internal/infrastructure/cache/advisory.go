package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Advisory wraps a Store with JSON encoding and swallows every error.
// Failures are logged at warn level and reported to callers as misses.
// A nil *Advisory is a valid cache that never hits.
type Advisory struct {
	store  Store
	logger *zap.Logger
}

// NewAdvisory creates an advisory cache over store
func NewAdvisory(store Store, logger *zap.Logger) *Advisory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisory{store: store, logger: logger}
}

// Get decodes the cached value into dest and reports whether it was a hit
func (a *Advisory) Get(ctx context.Context, key string, dest any) bool {
	if a == nil || a.store == nil {
		return false
	}
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			a.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		a.logger.Warn("Dropping corrupted cache entry", zap.String("key", key), zap.Error(err))
		_ = a.store.Delete(ctx, key)
		return false
	}
	return true
}

// Set encodes and stores value
func (a *Advisory) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if a == nil || a.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.store.Set(ctx, key, data, ttl); err != nil {
		a.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the keys
func (a *Advisory) Delete(ctx context.Context, keys ...string) {
	if a == nil || a.store == nil || len(keys) == 0 {
		return
	}
	if err := a.store.Delete(ctx, keys...); err != nil {
		a.logger.Warn("Cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// DeletePattern removes every key matching pattern
func (a *Advisory) DeletePattern(ctx context.Context, pattern string) {
	if a == nil || a.store == nil {
		return
	}
	n, err := a.store.DeletePattern(ctx, pattern)
	if err != nil {
		a.logger.Warn("Cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	a.logger.Debug("Invalidated cache keys", zap.String("pattern", pattern), zap.Int64("deleted_count", n))
}

// Claim marks key as taken for ttl and reports whether this caller took it.
// When the store fails the claim is granted, leaving deduplication to the database.
func (a *Advisory) Claim(ctx context.Context, key string, ttl time.Duration) bool {
	if a == nil || a.store == nil {
		return true
	}
	ok, err := a.store.SetNX(ctx, key, []byte("1"), ttl)
	if err != nil {
		a.logger.Warn("Cache claim failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes tokens before they expire
type TokenBlacklist interface {
	// AddToBlacklist revokes one token by JTI for the rest of its lifetime
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted checks if a token's JTI was revoked
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// InvalidatePrincipal revokes every token issued to the principal so far
	InvalidatePrincipal(ctx context.Context, principalID string, ttl time.Duration) error

	// IsPrincipalInvalidated reports whether a token issued at issuedAt predates
	// the principal's last invalidation
	IsPrincipalInvalidated(ctx context.Context, principalID string, issuedAt time.Time) (bool, error)
}

const blacklistKeyPrefix = "token:blacklist:"

// RedisTokenBlacklist implements TokenBlacklist using Redis
type RedisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist creates a blacklist on a shared Redis client
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func jtiKey(jti string) string {
	return blacklistKeyPrefix + "jti:" + jti
}

func principalKey(id string) string {
	return blacklistKeyPrefix + "principal:" + id
}

// AddToBlacklist stores the JTI with the token's remaining TTL
func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted checks if a token's JTI is in the blacklist
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}

// InvalidatePrincipal stores the invalidation time in unix seconds
func (b *RedisTokenBlacklist) InvalidatePrincipal(ctx context.Context, principalID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, principalKey(principalID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to invalidate principal tokens: %w", err)
	}
	return nil
}

// IsPrincipalInvalidated compares issuedAt with the stored invalidation time.
// Token iat has second precision, so tokens issued within the invalidation
// second stay valid; a login right after a password reset must succeed.
func (b *RedisTokenBlacklist) IsPrincipalInvalidated(ctx context.Context, principalID string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, principalKey(principalID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check principal invalidation: %w", err)
	}
	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return issuedAt.Unix() < invalidatedAt, nil
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist keeps revocations in process memory.
// It is used when Redis is not configured and does not span instances.
type InMemoryTokenBlacklist struct {
	mu            sync.Mutex
	jtis          map[string]time.Time // jti -> entry expiry
	invalidations map[string]time.Time // principal -> invalidation time
}

// NewInMemoryTokenBlacklist creates a new in-memory token blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:          make(map[string]time.Time),
		invalidations: make(map[string]time.Time),
	}
}

// AddToBlacklist adds a token's JTI to the blacklist
func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = time.Now().Add(ttl)
	return nil
}

// IsBlacklisted checks if a token's JTI is blacklisted and not expired
func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

// InvalidatePrincipal records the invalidation time
func (b *InMemoryTokenBlacklist) InvalidatePrincipal(_ context.Context, principalID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidations[principalID] = time.Now()
	return nil
}

// IsPrincipalInvalidated checks issuedAt against the invalidation time,
// truncated to the second like the Redis variant
func (b *InMemoryTokenBlacklist) IsPrincipalInvalidated(_ context.Context, principalID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	at, ok := b.invalidations[principalID]
	if !ok {
		return false, nil
	}
	return issuedAt.Before(at.Truncate(time.Second)), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)

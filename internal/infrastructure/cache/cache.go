// Package cache provides the advisory key-value cache used for pricing,
// broker lookups and the tradeline feed. The database stays the source of
// truth: callers treat every cache failure as a miss.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrMiss is returned by Store.Get when the key is absent or expired
var ErrMiss = errors.New("cache: miss")

// Cache keys and lifetimes
const (
	KeyPricingBase = "pricing:base"
	KeyTradelines  = "tradelines:all"

	PatternPricingBrokers = "pricing:broker:*"

	TTLPricing    = 5 * time.Minute
	TTLBroker     = time.Hour
	TTLTradelines = 15 * time.Minute
)

// PricingBrokerKey is the key of a broker's computed price list
func PricingBrokerKey(brokerID uuid.UUID) string {
	return "pricing:broker:" + brokerID.String()
}

// BrokerKey is the key of a broker looked up by id
func BrokerKey(brokerID uuid.UUID) string {
	return "broker:" + brokerID.String()
}

// BrokerAPIKeyKey is the key of a broker looked up by API key
func BrokerAPIKeyKey(apiKey string) string {
	return "broker:apikey:" + apiKey
}

// Store is a byte-oriented key-value store with TTLs
type Store interface {
	// Get returns the value or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores the value only if the key is absent.
	// Returns true if the key was newly set.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes the keys
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern and returns the count
	DeletePattern(ctx context.Context, pattern string) (int64, error)

	// Close releases resources held by the store
	Close() error
}

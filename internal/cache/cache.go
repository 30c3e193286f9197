// Package cache provides the TTL key-value port used to memoize provider
// prices, gas reports and token metadata, with in-process and redis backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is a TTL key-value store over opaque bytes. Backends provide their
// own atomicity; concurrent misses are not deduplicated.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Standard TTLs used across the engine.
const (
	TTLProviderPrice = 30 * time.Second
	TTLGas           = 5 * time.Second
	TTLAllowance     = 5 * time.Second
	TTLApproveCost   = 5 * time.Second
	TTLDecimals      = 2 * time.Hour
	TTLMetaPrice     = 5 * time.Second
	TTLLimitOrders   = 10 * time.Second
)

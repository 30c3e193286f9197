package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dexmeta/meta-swap-api/internal/logger"
)

// Memoize wraps fn with the cache: on a hit the stored JSON is decoded into
// T, on a miss fn runs and its result is stored for ttl. Cache failures are
// logged and treated as misses so a flaky backend never fails a request.
func Memoize[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if data, err := c.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		logger.Warn("discarding undecodable cache entry", logger.Fields{"key": key})
	} else if err != ErrMiss {
		logger.Warn("cache get failed", logger.Fields{"key": key, "error": err.Error()})
	}

	value, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	if data, err := json.Marshal(value); err == nil {
		if err := c.Set(ctx, key, data, ttl); err != nil {
			logger.Warn("cache set failed", logger.Fields{"key": key, "error": err.Error()})
		}
	}
	return value, nil
}

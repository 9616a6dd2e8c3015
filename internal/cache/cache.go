// Package cache is the short-lived read-through cache for API list responses.
// It is never authoritative: entries expire after a TTL and are deleted on
// every successful mutation of their collection.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/trogers1052/trade-journal/internal/logging"
)

// DefaultTTL is used when no TTL is configured
const DefaultTTL = 5 * time.Minute

// Collection keys
const (
	KeyStrategies = "strategies"
	KeyEvents     = "events"
	KeyPremarkets = "premarkets"
)

// StrategyTradesKey is the key of a strategy's trade list
func StrategyTradesKey(strategyID string) string {
	return "strategy:" + strategyID + ":trades"
}

// Cache stores opaque values by key
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReadThrough returns the cached value of key, or calls load and caches its
// result for ttl. Cache failures fall back to load. The bool reports a hit.
func ReadThrough[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	logger := logging.FromContext(ctx)

	if raw, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, true, nil
		}
		logger.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}

	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return value, false, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return value, false, nil
}

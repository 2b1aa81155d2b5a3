// Package cache is a read-through JSON cache over the key-value store.
// A cache backend outage is never fatal to a request: reads degrade to a
// miss and writes are dropped with a warning, so the read path stays
// available on the store alone.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/verseapi/internal/db"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache serializes arbitrary structured results as JSON under TTL'd keys.
type Cache struct {
	store     store
	keyPrefix string
	requests  *prometheus.CounterVec
	logger    *zap.Logger
}

// New creates a cache. keyPrefix is the store-wide key prefix from config
// (e.g. "verseapi:"); requests is a counter vec with labels
// (resource, result) where result is "hit"/"miss"/"error"; may be nil.
func New(s store, keyPrefix string, requests *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, keyPrefix: keyPrefix + "cache:", requests: requests, logger: logger}
}

// GetJSON looks up key and unmarshals the entry into dest. Returns false on
// miss, on backend failure, and on a corrupt entry — all three degrade to a
// source-of-truth read.
func (c *Cache) GetJSON(ctx context.Context, resource Resource, key string, dest any) bool {
	key = c.keyPrefix + key
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.count(resource, "miss")
			return false
		}
		c.count(resource, "error")
		c.logger.Warn("cache get failed, degrading to store read",
			zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.count(resource, "error")
		c.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}

	c.count(resource, "hit")
	return true
}

// SetJSON stores value under key with the given TTL. Backend failures are
// logged and swallowed; the caller already has the value to respond with.
func (c *Cache) SetJSON(ctx context.Context, resource Resource, key string, value any, ttl time.Duration) {
	key = c.keyPrefix + key
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.count(resource, "error")
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) count(resource Resource, result string) {
	if c.requests != nil {
		c.requests.WithLabelValues(string(resource), result).Inc()
	}
}

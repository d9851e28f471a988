package publicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

const defaultCatalogTTL = 5 * time.Minute

// CatalogCache caches service and stylist lists per tenant in Redis. Slot
// availability is never cached.
type CatalogCache struct {
	next   booking.Catalog
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCatalogCache wraps next. A zero ttl uses the default.
func NewCatalogCache(next booking.Catalog, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *CatalogCache {
	if next == nil {
		panic("publicapi: catalog cannot be nil")
	}
	if rdb == nil {
		panic("publicapi: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogCache{next: next, redis: rdb, ttl: ttl, logger: logger}
}

// ListServices implements booking.Catalog.
func (c *CatalogCache) ListServices(ctx context.Context, clientID string) ([]booking.Service, error) {
	var out []booking.Service
	if c.load(ctx, catalogKey(clientID, "services"), &out) {
		return out, nil
	}
	services, err := c.next.ListServices(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, catalogKey(clientID, "services"), services)
	return services, nil
}

// ListStylists implements booking.Catalog.
func (c *CatalogCache) ListStylists(ctx context.Context, clientID string) ([]booking.Stylist, error) {
	var out []booking.Stylist
	if c.load(ctx, catalogKey(clientID, "stylists"), &out) {
		return out, nil
	}
	stylists, err := c.next.ListStylists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, catalogKey(clientID, "stylists"), stylists)
	return stylists, nil
}

// Invalidate drops both cached lists for a tenant.
func (c *CatalogCache) Invalidate(ctx context.Context, clientID string) error {
	if err := c.redis.Del(ctx, catalogKey(clientID, "services"), catalogKey(clientID, "stylists")).Err(); err != nil {
		return fmt.Errorf("publicapi: invalidate catalog: %w", err)
	}
	return nil
}

// load reports a hit. Redis failures degrade to a miss.
func (c *CatalogCache) load(ctx context.Context, key string, out any) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("catalog cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CatalogCache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func catalogKey(clientID, kind string) string {
	return fmt.Sprintf("catalog:%s:%s", clientID, kind)
}

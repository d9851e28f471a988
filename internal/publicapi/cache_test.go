package publicapi

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

type countingCatalog struct {
	services int
	stylists int
}

func (c *countingCatalog) ListServices(_ context.Context, clientID string) ([]booking.Service, error) {
	c.services++
	return []booking.Service{{ID: "svc-" + clientID, Name: "Cut", Price: decimal.RequireFromString("45"), DurationMinutes: 30}}, nil
}

func (c *countingCatalog) ListStylists(_ context.Context, clientID string) ([]booking.Stylist, error) {
	c.stylists++
	return []booking.Stylist{{ID: "sty-" + clientID, Name: "Jordan"}}, nil
}

func TestCatalogCache_HitsAfterFirstLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingCatalog{}
	cache := NewCatalogCache(inner, rdb, time.Minute, logging.Default())
	ctx := context.Background()

	first, err := cache.ListServices(ctx, "a")
	require.NoError(t, err)
	second, err := cache.ListServices(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.services)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].Price.Equal(second[0].Price))

	// Tenants never share entries.
	other, err := cache.ListServices(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "svc-b", other[0].ID)
	assert.Equal(t, 2, inner.services)

	_, err = cache.ListStylists(ctx, "a")
	require.NoError(t, err)
	_, err = cache.ListStylists(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.stylists)
}

func TestCatalogCache_ExpiresAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingCatalog{}
	cache := NewCatalogCache(inner, rdb, time.Minute, nil)
	ctx := context.Background()

	_, _ = cache.ListServices(ctx, "a")
	mr.FastForward(2 * time.Minute)
	_, _ = cache.ListServices(ctx, "a")
	assert.Equal(t, 2, inner.services)

	require.NoError(t, cache.Invalidate(ctx, "a"))
	_, _ = cache.ListServices(ctx, "a")
	assert.Equal(t, 3, inner.services)
}

func TestCatalogCache_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingCatalog{}
	cache := NewCatalogCache(inner, rdb, time.Minute, nil)
	mr.Close()

	services, err := cache.ListServices(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

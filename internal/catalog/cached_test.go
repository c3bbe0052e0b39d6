package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/assistant-engine/internal/cache"
)

type countingCatalog struct {
	calls    map[string]int
	products []ProductSummary
	names    []string
	err      error
}

func newCountingCatalog() *countingCatalog {
	return &countingCatalog{
		calls: make(map[string]int),
		products: []ProductSummary{
			{ID: "p1", Name: "Desk Lamp", Price: 29, Stock: OnOrderFlag(false)},
		},
		names: []string{"Desk Lamp"},
	}
}

func (c *countingCatalog) SearchByName(ctx context.Context, text string, limit int) ([]ProductSummary, error) {
	c.calls["search"]++
	return c.products, c.err
}

func (c *countingCatalog) ListByCategory(ctx context.Context, category string, limit int) ([]ProductSummary, error) {
	c.calls["category"]++
	return c.products, c.err
}

func (c *countingCatalog) ListNewest(ctx context.Context, limit int) ([]ProductSummary, error) {
	c.calls["newest"]++
	return c.products, c.err
}

func (c *countingCatalog) ListDiscounted(ctx context.Context, limit int) ([]ProductSummary, error) {
	c.calls["discounted"]++
	return c.products, c.err
}

func (c *countingCatalog) ListTopViewed(ctx context.Context, limit int) ([]string, error) {
	c.calls["top"]++
	return c.names, c.err
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	backend := newCountingCatalog()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	cached := NewCachedCatalog(backend, mem, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cached.SearchByName(ctx, "Lamp", 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].InStock(), "stock status must survive the cache round trip")
	}
	assert.Equal(t, 1, backend.calls["search"])

	_, err := cached.SearchByName(ctx, "lamp", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls["search"], "different limit is a different key")

	for i := 0; i < 2; i++ {
		names, err := cached.ListTopViewed(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"Desk Lamp"}, names)
	}
	assert.Equal(t, 1, backend.calls["top"])
}

func TestCachedCatalog_ErrorsAreNotCached(t *testing.T) {
	backend := newCountingCatalog()
	backend.err = errors.New("connection refused")
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	cached := NewCachedCatalog(backend, mem, time.Minute, nil)
	ctx := context.Background()

	_, err := cached.ListNewest(ctx, 5)
	require.Error(t, err)
	_, err = cached.ListNewest(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, 2, backend.calls["newest"])
	assert.Zero(t, mem.Len())
}

func TestCachedCatalog_Invalidate(t *testing.T) {
	backend := newCountingCatalog()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	cached := NewCachedCatalog(backend, mem, time.Minute, nil)
	ctx := context.Background()

	_, err := cached.ListDiscounted(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, cached.Invalidate(ctx))
	_, err = cached.ListDiscounted(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.calls["discounted"])
}

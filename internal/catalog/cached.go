package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopmate/assistant-engine/internal/cache"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// CacheKeyPrefix namespaces all catalog cache entries.
const CacheKeyPrefix = "catalog:"

// CachedCatalog decorates a Catalog with a read-through cache. Cache faults
// are logged and fall through to the backend.
type CachedCatalog struct {
	backend Catalog
	cache   cache.Client
	ttl     time.Duration
	logger  *observability.Logger
}

// NewCachedCatalog wraps backend.
func NewCachedCatalog(backend Catalog, c cache.Client, ttl time.Duration, logger *observability.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CachedCatalog{backend: backend, cache: c, ttl: ttl, logger: logger}
}

// SearchByName implements Catalog.
func (c *CachedCatalog) SearchByName(ctx context.Context, text string, limit int) ([]ProductSummary, error) {
	key := cacheKey("search", strings.ToLower(strings.TrimSpace(text)), limit)
	return readThrough(ctx, c, key, func() ([]ProductSummary, error) {
		return c.backend.SearchByName(ctx, text, limit)
	})
}

// ListByCategory implements Catalog.
func (c *CachedCatalog) ListByCategory(ctx context.Context, category string, limit int) ([]ProductSummary, error) {
	key := cacheKey("category", strings.ToLower(category), limit)
	return readThrough(ctx, c, key, func() ([]ProductSummary, error) {
		return c.backend.ListByCategory(ctx, category, limit)
	})
}

// ListNewest implements Catalog.
func (c *CachedCatalog) ListNewest(ctx context.Context, limit int) ([]ProductSummary, error) {
	return readThrough(ctx, c, cacheKey("newest", "", limit), func() ([]ProductSummary, error) {
		return c.backend.ListNewest(ctx, limit)
	})
}

// ListDiscounted implements Catalog.
func (c *CachedCatalog) ListDiscounted(ctx context.Context, limit int) ([]ProductSummary, error) {
	return readThrough(ctx, c, cacheKey("discounted", "", limit), func() ([]ProductSummary, error) {
		return c.backend.ListDiscounted(ctx, limit)
	})
}

// ListTopViewed implements Catalog.
func (c *CachedCatalog) ListTopViewed(ctx context.Context, limit int) ([]string, error) {
	return readThrough(ctx, c, cacheKey("top_viewed", "", limit), func() ([]string, error) {
		return c.backend.ListTopViewed(ctx, limit)
	})
}

// Invalidate drops every cached catalog entry.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.cache.DeleteByPrefix(ctx, CacheKeyPrefix)
}

func readThrough[T any](ctx context.Context, c *CachedCatalog, key string, load func() (T, error)) (T, error) {
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("Discarding undecodable catalog cache entry")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
	}

	result, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache encode failed")
		return result, nil
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}
	return result, nil
}

func cacheKey(op, arg string, limit int) string {
	return CacheKeyPrefix + cache.Key(op, strconv.Itoa(limit), arg)
}

package valuation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comphound/comphound/internal/metrics"
)

// DefaultCacheTTL is how long a provider response stays cached. Property
// records change slowly, so a day-scale TTL is acceptable.
const DefaultCacheTTL = 24 * time.Hour

// CachedProvider wraps a Provider with a Redis read-through cache keyed by
// normalized address and comparable limit. Cache failures degrade to direct
// provider calls rather than failing the search.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProvider creates a caching decorator around inner.
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// SearchComparables serves from cache when possible, otherwise calls the
// wrapped provider and stores its response.
func (c *CachedProvider) SearchComparables(ctx context.Context, address string, limit int) (*RawResponse, error) {
	key := cacheKey(address, limit)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var resp RawResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			metrics.ValuationCacheHits.Inc()
			return &resp, nil
		}
		// Corrupt entry, drop it and refetch
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.logger.Warn("valuation cache read failed", "error", err)
	}
	metrics.ValuationCacheMisses.Inc()

	resp, err := c.inner.SearchComparables(ctx, address, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("valuation cache write failed", "error", err)
		}
	}

	return resp, nil
}

// cacheKey hashes the normalized address so keys stay fixed-length and free
// of Redis-hostile characters.
func cacheKey(address string, limit int) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("valuation:%s:%d", hex.EncodeToString(sum[:]), limit)
}

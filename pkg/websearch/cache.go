package websearch

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"funnel-canvas-be/pkg/rag"
)

const cacheTTL = 15 * time.Minute

// CachedProvider wraps a Provider with a Redis result cache so repeated
// queries within the TTL don't burn paid API calls. Cache failures degrade to
// a direct call, never to an error.
type CachedProvider struct {
	inner  Provider
	rdb    *redis.Client
	logger *log.Logger
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(inner Provider, rdb *redis.Client, logger *log.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		rdb:    rdb,
		logger: logger,
	}
}

func (c *CachedProvider) Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error) {
	if c.rdb == nil {
		return c.inner.Search(ctx, query, limit)
	}

	key := cacheKey(query, limit)

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var results []rag.WebSearchResult
		if err := json.Unmarshal([]byte(cached), &results); err == nil {
			return results, nil
		}
		// Corrupt entry, fall through to a fresh call.
	} else if err != redis.Nil {
		c.logger.Printf("[WARN] Web search cache read failed: %v", err)
	}

	results, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
			c.logger.Printf("[WARN] Web search cache write failed: %v", err)
		}
	}

	return results, nil
}

func cacheKey(query string, limit int) string {
	sum := sha1.Sum([]byte(query))
	return fmt.Sprintf("websearch:%x:%d", sum, limit)
}

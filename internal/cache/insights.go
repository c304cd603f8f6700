package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spendlog/spendlog/internal/model"
)

const (
	insightsVersionPrefix = "insights:ver:"
	insightsEntryPrefix   = "insights:"

	insightKindCategories = "categories"
	insightKindSummary    = "summary"
)

// InsightCache stores date-independent aggregates per owner.
//
// Entries are keyed by a per-owner version number. Any write by the owner
// bumps the version, which orphans every older entry; orphans expire by TTL.
// Redis failures degrade to computing the result directly.
//
// An owner whose version bump failed is remembered as stale. Its lookups
// bypass the cache until a later bump succeeds, so entries written before
// the failed bump are never served once Redis recovers.
type InsightCache struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewInsightCache returns an insight cache whose entries live for ttl.
func NewInsightCache(c *Cache, ttl time.Duration) *InsightCache {
	return &InsightCache{client: c.client, ttl: ttl, stale: make(map[string]struct{})}
}

// CategoryInsights returns the cached category breakdown for ownerID,
// calling compute on a miss. The boolean reports a cache hit.
func (c *InsightCache) CategoryInsights(
	ctx context.Context,
	ownerID string,
	compute func(context.Context) ([]model.CategoryInsight, error),
) ([]model.CategoryInsight, bool, error) {
	return remember(ctx, c, ownerID, insightKindCategories, compute)
}

// Summary returns the cached summary for ownerID, calling compute on a miss.
func (c *InsightCache) Summary(
	ctx context.Context,
	ownerID string,
	compute func(context.Context) (model.Summary, error),
) (model.Summary, bool, error) {
	return remember(ctx, c, ownerID, insightKindSummary, compute)
}

// InvalidateOwner orphans every cached insight of ownerID. On failure the
// owner is marked stale and the bump is retried on its next lookup.
func (c *InsightCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	if err := c.client.Incr(ctx, insightsVersionPrefix+ownerID).Err(); err != nil {
		c.markStale(ownerID, true)
		return fmt.Errorf("bump insights version: %w", err)
	}
	c.markStale(ownerID, false)
	return nil
}

func (c *InsightCache) markStale(ownerID string, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale {
		c.stale[ownerID] = struct{}{}
	} else {
		delete(c.stale, ownerID)
	}
}

func (c *InsightCache) isStale(ownerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[ownerID]
	return ok
}

func remember[T any](
	ctx context.Context,
	c *InsightCache,
	ownerID, kind string,
	compute func(context.Context) (T, error),
) (T, bool, error) {
	if c.ttl <= 0 {
		v, err := compute(ctx)
		return v, false, err
	}

	if c.isStale(ownerID) && c.InvalidateOwner(ctx, ownerID) != nil {
		v, err := compute(ctx)
		return v, false, err
	}

	// The version is read before compute so a concurrent write can only
	// orphan what we store, never be hidden by it.
	version, err := c.version(ctx, ownerID)
	if err != nil {
		v, err := compute(ctx)
		return v, false, err
	}
	key := entryKey(kind, ownerID, version)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if json.Unmarshal(data, &cached) == nil {
			return cached, true, nil
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return v, false, err
	}

	if data, err := json.Marshal(v); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return v, false, nil
}

func (c *InsightCache) version(ctx context.Context, ownerID string) (int64, error) {
	v, err := c.client.Get(ctx, insightsVersionPrefix+ownerID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func entryKey(kind, ownerID string, version int64) string {
	return insightsEntryPrefix + kind + ":" + ownerID + ":v" + strconv.FormatInt(version, 10)
}

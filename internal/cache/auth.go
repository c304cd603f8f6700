package cache

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spendlog/spendlog/internal/model"
)

const (
	authCachePrefix = "auth:ctx:"
	authCacheTTL    = 5 * time.Minute
)

// cachedAuthContext is the Redis representation of an API key identity.
// Entries are keyed by key prefix so revocation can find them; the
// fingerprint of the full key must match for a hit.
type cachedAuthContext struct {
	Fingerprint   string   `json:"fingerprint"`
	Method        string   `json:"method"`
	KeyID         string   `json:"key_id"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

// GetAuthContext returns the cached identity for the key with prefix whose
// fingerprint matches, or nil on a miss.
func (c *Cache) GetAuthContext(ctx context.Context, prefix, fingerprint string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+prefix).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry, treat as miss.
		return nil, nil //nolint:nilerr
	}
	if subtle.ConstantTimeCompare([]byte(cached.Fingerprint), []byte(fingerprint)) != 1 {
		return nil, nil
	}

	return &model.AuthContext{
		Method:        cached.Method,
		KeyID:         cached.KeyID,
		UserID:        cached.UserID,
		Scopes:        cached.Scopes,
		RateLimitTier: cached.RateLimitTier,
	}, nil
}

// SetAuthContext caches the identity of the key with prefix and fingerprint.
func (c *Cache) SetAuthContext(ctx context.Context, prefix, fingerprint string, auth *model.AuthContext) error {
	data, err := json.Marshal(cachedAuthContext{
		Fingerprint:   fingerprint,
		Method:        auth.Method,
		KeyID:         auth.KeyID,
		UserID:        auth.UserID,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+prefix, data, authCacheTTL).Err()
}

// DeleteAuthContext drops the cached identity for prefix. Called on key revocation.
func (c *Cache) DeleteAuthContext(ctx context.Context, prefix string) error {
	return c.client.Del(ctx, authCachePrefix+prefix).Err()
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitCallerPrefix = "ratelimit:caller:"
	rateLimitIPPrefix     = "ratelimit:ip:"
)

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time // when the bucket is full again
	RetryAfter time.Duration
}

// tokenBucketScript refills a bucket for the elapsed time and takes one
// token from it. Times are in milliseconds. The key lives until the
// bucket would be full, so idle callers leave nothing behind.
//
// Returns {allowed, wait_ms, remaining, full_ms}.
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) / rate)
end

local full_ms = math.ceil((burst - tokens) / rate)
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], math.max(full_ms, 1000))

return {allowed, wait_ms, math.floor(tokens), full_ms}
`)

// bucket describes a token bucket in the units the script works in.
type bucket struct {
	perMilli float64
	burst    int
}

func newBucket(perSecond float64, burst int) bucket {
	return bucket{perMilli: perSecond / 1000, burst: max(burst, 1)}
}

// CheckCallerRateLimit takes a token from the bucket of an authenticated
// caller. bucketKey is AuthContext.RateLimitKey; a rate of zero or less
// means unlimited.
func (c *Cache) CheckCallerRateLimit(ctx context.Context, bucketKey string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now()}, nil
	}
	return c.take(ctx, rateLimitCallerPrefix+bucketKey, newBucket(float64(ratePerMinute)/60, burst))
}

// CheckIPRateLimit takes a token from the bucket of a client IP. Raw
// addresses are not stored.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now()}, nil
	}
	return c.take(ctx, rateLimitIPPrefix+hashIP(ip), newBucket(float64(ratePerSecond), burst))
}

// take runs the bucket script. Errors are returned so the caller decides
// whether to fail open.
func (c *Cache) take(ctx context.Context, key string, b bucket) (*RateLimitResult, error) {
	now := time.Now()

	res, err := tokenBucketScript.Run(ctx, c.client, []string{key}, b.perMilli, b.burst, now.UnixMilli()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
	}, nil
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

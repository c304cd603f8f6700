package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/cache"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
)

// RateLimiter consumes tokens from caller and IP buckets.
type RateLimiter interface {
	CheckCallerRateLimit(ctx context.Context, bucket string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder // optional

	// Per caller, sized by the caller's tier.
	APIEnabled bool

	// Per client IP, for the unauthenticated account endpoints.
	AuthEnabled bool
	AuthRPS     int
	AuthBurst   int
}

// RateLimitAPI returns middleware that rate limits authenticated callers.
// Token callers share a bucket per user, API key callers have one per key.
// Must be applied after Auth.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if !cfg.APIEnabled || authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier := model.TierConfig(authCtx.RateLimitTier)
			if tier.RequestsPerMinute == 0 {
				next.ServeHTTP(w, r)
				return
			}

			bucket := authCtx.RateLimitKey()
			result, err := cfg.Limiter.CheckCallerRateLimit(r.Context(), bucket, tier.RequestsPerMinute, tier.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("bucket", bucket),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, tier.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.reject(w, r, "api", slog.String("bucket", bucket), result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Used on register and token endpoints to slow down credential guessing.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.AuthRPS, cfg.AuthBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				cfg.reject(w, r, "auth", slog.String("ip", ip), result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return cfg
}

func (cfg RateLimitConfig) reject(w http.ResponseWriter, r *http.Request, kind string, subject slog.Attr, retryAfter time.Duration) {
	seconds := max(int(math.Ceil(retryAfter.Seconds())), 1)

	cfg.Metrics.IncRateLimited()
	cfg.Logger.Warn("rate limit exceeded",
		slog.String("type", kind),
		subject,
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", seconds),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests,
		fmt.Sprintf("request was throttled; expected available in %d seconds", seconds))
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// getClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/cache"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
)

// countingLimiter allows the first limit calls per bucket.
type countingLimiter struct {
	limit   int
	seen    map[string]int
	err     error
	buckets []string
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, seen: make(map[string]int)}
}

func (l *countingLimiter) check(bucket string) (*cache.RateLimitResult, error) {
	l.buckets = append(l.buckets, bucket)
	if l.err != nil {
		return nil, l.err
	}
	l.seen[bucket]++
	remaining := l.limit - l.seen[bucket]
	if remaining < 0 {
		return &cache.RateLimitResult{Allowed: false, RetryAfter: 3 * time.Second, ResetAt: time.Now()}, nil
	}
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(remaining), ResetAt: time.Now()}, nil
}

func (l *countingLimiter) CheckCallerRateLimit(_ context.Context, bucket string, _, _ int) (*cache.RateLimitResult, error) {
	return l.check("caller:" + bucket)
}

func (l *countingLimiter) CheckIPRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	return l.check("ip:" + ip)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestAs(a *model.AuthContext) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	if a != nil {
		req = req.WithContext(auth.ContextWithAuth(req.Context(), a))
	}
	return req
}

func TestRateLimitAPI_ThrottlesPerCaller(t *testing.T) {
	t.Parallel()

	limiter := newCountingLimiter(1)
	rec := metrics.NewInMemory()
	h := RateLimitAPI(RateLimitConfig{Limiter: limiter, Metrics: rec, APIEnabled: true})(okHandler)

	alice := &model.AuthContext{Method: model.AuthMethodToken, UserID: "alice", RateLimitTier: model.TierFree}
	bob := &model.AuthContext{Method: model.AuthMethodAPIKey, KeyID: "k1", UserID: "bob", RateLimitTier: model.TierFree}

	res := httptest.NewRecorder()
	h.ServeHTTP(res, requestAs(alice))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "120", res.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", res.Header().Get("X-RateLimit-Remaining"))

	res = httptest.NewRecorder()
	h.ServeHTTP(res, requestAs(alice))
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "3", res.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"error":"request was throttled; expected available in 3 seconds"}`, res.Body.String())

	res = httptest.NewRecorder()
	h.ServeHTTP(res, requestAs(bob))
	assert.Equal(t, http.StatusOK, res.Code)

	assert.Equal(t, []string{"caller:user:alice", "caller:user:alice", "caller:key:k1"}, limiter.buckets)
	assert.Equal(t, uint64(1), rec.Snapshot().RateLimited)
}

func TestRateLimitAPI_Bypass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		enabled bool
		caller  *model.AuthContext
	}{
		{"disabled", false, &model.AuthContext{UserID: "a"}},
		{"anonymous", true, nil},
		{"unlimited tier", true, &model.AuthContext{UserID: "a", RateLimitTier: model.TierUnlimited}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := newCountingLimiter(0)
			h := RateLimitAPI(RateLimitConfig{Limiter: limiter, APIEnabled: tt.enabled})(okHandler)

			res := httptest.NewRecorder()
			h.ServeHTTP(res, requestAs(tt.caller))
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Empty(t, limiter.buckets)
		})
	}
}

func TestRateLimitAPI_FailsOpen(t *testing.T) {
	t.Parallel()

	limiter := newCountingLimiter(0)
	limiter.err = errors.New("redis down")
	h := RateLimitAPI(RateLimitConfig{Limiter: limiter, APIEnabled: true})(okHandler)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, requestAs(&model.AuthContext{UserID: "a", RateLimitTier: model.TierFree}))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRateLimitIP(t *testing.T) {
	t.Parallel()

	limiter := newCountingLimiter(2)
	h := RateLimitIP(RateLimitConfig{Limiter: limiter, AuthEnabled: true, AuthRPS: 5, AuthBurst: 2})(okHandler)

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/token", nil)
		req.RemoteAddr = remote
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"), "ports share the IP bucket")
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "X-Forwarded-For single", xff: "1.2.3.4", remoteAddr: "127.0.0.1:8080", want: "1.2.3.4"},
		{name: "X-Forwarded-For multiple", xff: "1.2.3.4, 5.6.7.8", remoteAddr: "127.0.0.1:8080", want: "1.2.3.4"},
		{name: "X-Real-IP", xri: "1.2.3.4", remoteAddr: "127.0.0.1:8080", want: "1.2.3.4"},
		{name: "RemoteAddr host", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "RemoteAddr without port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			req.RemoteAddr = tc.remoteAddr
			assert.Equal(t, tc.want, getClientIP(req))
		})
	}
}

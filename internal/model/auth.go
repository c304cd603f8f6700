package model

import "slices"

// Scopes a credential can carry. Admin implies the others.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScopes lists every scope in canonical order.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// SessionScopes are granted to callers authenticated with an access token.
var SessionScopes = []string{ScopeRead, ScopeWrite}

// NormalizeScopes drops duplicates and returns scopes in canonical order.
// An empty list becomes read-only. The second result is the first unknown
// scope, if any.
func NormalizeScopes(scopes []string) ([]string, string) {
	for _, s := range scopes {
		if !slices.Contains(ValidScopes, s) {
			return nil, s
		}
	}
	if len(scopes) == 0 {
		return []string{ScopeRead}, ""
	}

	out := make([]string, 0, len(ValidScopes))
	for _, s := range ValidScopes {
		if slices.Contains(scopes, s) {
			out = append(out, s)
		}
	}
	return out, ""
}

func hasScope(scopes []string, scope string) bool {
	return slices.Contains(scopes, ScopeAdmin) || slices.Contains(scopes, scope)
}

// Rate limit tiers.
const (
	TierFree      = "free"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// RateLimitConfig sizes a caller's token bucket. A zero rate is unlimited.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// TierConfigs maps tier names to bucket sizes.
var TierConfigs = map[string]RateLimitConfig{
	TierFree:      {RequestsPerMinute: 120, Burst: 20},
	TierPro:       {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {},
}

// TierConfig returns the limits for tier, defaulting to the free tier.
func TierConfig(tier string) RateLimitConfig {
	if config, ok := TierConfigs[tier]; ok {
		return config
	}
	return TierConfigs[TierFree]
}

// Authentication methods recorded on AuthContext.
const (
	AuthMethodToken  = "token"
	AuthMethodAPIKey = "api_key"
)

// AuthContext is the resolved caller identity attached to a request.
// UserID owns every expense the request may touch.
type AuthContext struct {
	Method        string
	KeyID         string
	UserID        string
	Scopes        []string
	RateLimitTier string
}

// HasScope reports whether the caller may act with scope.
func (a *AuthContext) HasScope(scope string) bool {
	return hasScope(a.Scopes, scope)
}

// RateLimitKey identifies the bucket this caller draws from: one per API
// key, and one per user for all of that user's sessions.
func (a *AuthContext) RateLimitKey() string {
	if a.Method == AuthMethodAPIKey {
		return "key:" + a.KeyID
	}
	return "user:" + a.UserID
}

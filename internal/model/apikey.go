package model

import "time"

// APIKey is a long-lived credential bound to a user. Only the Argon2id
// hash of the plaintext is stored.
type APIKey struct {
	ID            string
	UserID        string
	KeyHash       string
	KeyPrefix     string
	Scopes        []string
	RateLimitTier string
	Name          string
	RevokedAt     *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	return hasScope(k.Scopes, scope)
}

// AuthContext is the identity a request authenticated with this key gets.
func (k *APIKey) AuthContext() *AuthContext {
	return &AuthContext{
		Method:        AuthMethodAPIKey,
		KeyID:         k.ID,
		UserID:        k.UserID,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
	}
}

// APIKeyCreateRequest is the body of POST /api/api-keys.
type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes"`
}

// APIKeyResponse is an API key without its secret.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

// ToResponse hides the hash.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// APIKeyCreateResponse carries the plaintext key. It is returned once.
type APIKeyCreateResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

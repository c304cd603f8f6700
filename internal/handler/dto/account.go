package dto

import "time"

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// TokenRequest is the body of POST /api/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/token/refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// UserResponse represents an account without credentials.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPairResponse carries a fresh access and refresh token.
type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessTokenResponse carries a refreshed access token.
type AccessTokenResponse struct {
	Access string `json:"access"`
}

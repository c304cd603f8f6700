package model

import (
	"regexp"
	"time"
)

// Username bounds.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 150
	MinPasswordLength = 8
)

// usernamePattern allows letters, digits and @.+-_ characters.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// User is an account that owns expenses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidUsername reports whether name is an acceptable username.
func ValidUsername(name string) bool {
	if len(name) < MinUsernameLength || len(name) > MaxUsernameLength {
		return false
	}
	return usernamePattern.MatchString(name)
}

// Package auth issues and verifies caller credentials: access and refresh
// tokens, API keys and password hashes.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// API keys look like sl_{env}_{prefix}_{secret}, for example
// sl_live_7a9f3c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b. The prefix is stored in
// clear and used for lookup; only an Argon2id hash of the whole key is kept.
const (
	KeyPrefixLen = 6
	KeySecretLen = 32
)

// Environment markers embedded in keys.
const (
	EnvLive = "live"
	EnvTest = "test"
)

// ErrInvalidKeyFormat is returned by ParseAPIKey for anything that is not
// a well formed key.
var ErrInvalidKeyFormat = errors.New("invalid API key format")

var keyPattern = regexp.MustCompile(`^sl_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)

// GeneratedKey is a freshly minted key. Plaintext is shown to the owner
// once and never stored.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// ParsedKey holds the parts of a plaintext key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// KeyEnvFor picks the key marker for an application environment: live in
// production, test everywhere else.
func KeyEnvFor(appEnv string) string {
	if appEnv == "production" {
		return EnvLive
	}
	return EnvTest
}

// GenerateAPIKey mints a key for env. Unknown markers become live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := "sl_" + env + "_" + prefix + "_" + secret
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

// ParseAPIKey splits a plaintext key into its parts.
func ParseAPIKey(key string) (*ParsedKey, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/spendlog/spendlog/internal/model"
)

// ErrAPIKeyNotFound is returned when a key does not exist for the user.
var ErrAPIKeyNotFound = errors.New("API key not found")

const apiKeySelect = `
	SELECT id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, revoked_at, last_used_at, created_at
	FROM api_keys
`

// CreateAPIKey inserts a new API key.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.KeyHash,
		key.KeyPrefix,
		pq.Array(key.Scopes),
		key.RateLimitTier,
		key.Name,
		key.CreatedAt,
	)

	return mapError(err, "failed to create API key", ErrUserNotFound)
}

// GetAPIKeyByID retrieves one of the user's API keys.
func (r *Repository) GetAPIKeyByID(ctx context.Context, userID, id string) (*model.APIKey, error) {
	row := r.pool.QueryRow(ctx, apiKeySelect+`WHERE id = $1 AND user_id = $2`, id, userID)

	key, err := scanAPIKey(row)
	if err != nil {
		return nil, mapError(err, "failed to get API key", ErrAPIKeyNotFound)
	}
	return key, nil
}

// GetAPIKeysByPrefix returns the active keys sharing a visible prefix.
// The caller verifies the secret against each candidate.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	return r.queryAPIKeys(ctx, "failed to get API keys by prefix",
		apiKeySelect+`WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
}

// ListAPIKeysByUserID returns every key of a user, newest first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return r.queryAPIKeys(ctx, "failed to list API keys",
		apiKeySelect+`WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// RevokeAPIKey revokes one of the user's keys and returns its prefix.
// Keys owned by someone else are reported as not found.
func (r *Repository) RevokeAPIKey(ctx context.Context, userID, id string) (string, error) {
	query := `
		UPDATE api_keys
		SET revoked_at = $3
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
		RETURNING key_prefix
	`

	var prefix string
	err := r.pool.QueryRow(ctx, query, id, userID, time.Now().UTC()).Scan(&prefix)
	if err != nil {
		return "", mapError(err, "failed to revoke API key", ErrAPIKeyNotFound)
	}

	return prefix, nil
}

// UpdateAPIKeyLastUsed updates the last_used_at timestamp.
func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update API key last used: %w", err)
	}
	return nil
}

func (r *Repository) queryAPIKeys(ctx context.Context, op, query string, args ...any) ([]*model.APIKey, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	defer rows.Close()

	keys := make([]*model.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// scanAPIKey scans a row selected with apiKeySelect.
func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	var scopes []string

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&scopes),
		&key.RateLimitTier,
		&key.Name,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	key.Scopes = scopes
	return &key, nil
}

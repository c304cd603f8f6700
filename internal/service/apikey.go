package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// APIKeyStore persists API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, id string) (string, error)
}

// AuthCacheInvalidator forgets cached API key identities.
type AuthCacheInvalidator interface {
	DeleteAuthContext(ctx context.Context, prefix string) error
}

// APIKeyService mints, lists and revokes a user's API keys.
type APIKeyService struct {
	store  APIKeyStore
	cache  AuthCacheInvalidator
	keyEnv string
	logger *slog.Logger
}

// NewAPIKeyService creates a new APIKeyService. Keys are minted for the
// environment marker derived from appEnv. cache may be nil.
func NewAPIKeyService(store APIKeyStore, cache AuthCacheInvalidator, appEnv string, logger *slog.Logger) *APIKeyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyService{
		store:  store,
		cache:  cache,
		keyEnv: auth.KeyEnvFor(appEnv),
		logger: logger,
	}
}

// Create mints a key for userID. Scopes default to read. The plaintext is
// only available in the returned response.
func (s *APIKeyService) Create(ctx context.Context, userID string, req model.APIKeyCreateRequest) (*model.APIKeyCreateResponse, error) {
	scopes, unknown := model.NormalizeScopes(req.Scopes)
	if unknown != "" {
		return nil, invalid("scopes", fmt.Sprintf("%q is not a valid scope. Valid scopes: read, write, admin.", unknown))
	}

	generated, err := auth.GenerateAPIKey(s.keyEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}

	key := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: model.TierFree,
		Name:          req.Name,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	s.logger.Info("API key created",
		slog.String("key_id", key.ID),
		slog.String("key_prefix", key.KeyPrefix),
		slog.String("user_id", userID),
	)

	return &model.APIKeyCreateResponse{
		APIKeyResponse: key.ToResponse(),
		Key:            generated.Plaintext,
	}, nil
}

// List returns userID's keys without secrets.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]model.APIKeyResponse, error) {
	keys, err := s.store.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}
	return responses, nil
}

// Revoke disables one of userID's keys and evicts its cached identity.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	prefix, err := s.store.RevokeAPIKey(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteAuthContext(ctx, prefix); err != nil {
			s.logger.Warn("failed to evict revoked API key",
				slog.String("key_id", keyID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("API key revoked",
		slog.String("key_id", keyID),
		slog.String("user_id", userID),
	)
	return nil
}

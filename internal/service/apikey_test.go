package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/testutil"
	"github.com/spendlog/spendlog/internal/testutil/memstore"
)

type recordingAuthCache struct {
	deleted []string
}

func (r *recordingAuthCache) DeleteAuthContext(_ context.Context, prefix string) error {
	r.deleted = append(r.deleted, prefix)
	return nil
}

func newAPIKeyService(t *testing.T) (*APIKeyService, *memstore.Store, *recordingAuthCache, *model.User) {
	t.Helper()

	store := memstore.New()
	user := testutil.NewTestUser(t)
	require.NoError(t, store.CreateUser(context.Background(), user))

	cache := &recordingAuthCache{}
	return NewAPIKeyService(store, cache, "development", nil), store, cache, user
}

func TestAPIKeyService_Create(t *testing.T) {
	t.Parallel()

	svc, store, _, user := newAPIKeyService(t)

	resp, err := svc.Create(context.Background(), user.ID, model.APIKeyCreateRequest{Name: "ci"})
	require.NoError(t, err)

	parsed, err := auth.ParseAPIKey(resp.Key)
	require.NoError(t, err)
	assert.Equal(t, auth.EnvTest, parsed.Env)
	assert.Equal(t, parsed.Prefix, resp.KeyPrefix)
	assert.Equal(t, []string{model.ScopeRead}, resp.Scopes)

	stored, err := store.GetAPIKeysByPrefix(context.Background(), resp.KeyPrefix)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	ok, err := auth.VerifyPassword(resp.Key, stored[0].KeyHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPIKeyService_CreateRejectsUnknownScope(t *testing.T) {
	t.Parallel()

	svc, _, _, user := newAPIKeyService(t)

	_, err := svc.Create(context.Background(), user.ID, model.APIKeyCreateRequest{Scopes: []string{"read", "billing"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scopes", verr.Field)
}

func TestAPIKeyService_ListAndRevoke(t *testing.T) {
	t.Parallel()

	svc, _, cache, user := newAPIKeyService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, user.ID, model.APIKeyCreateRequest{Scopes: []string{model.ScopeAdmin}})
	require.NoError(t, err)

	keys, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].Revoked)

	assert.ErrorIs(t, svc.Revoke(ctx, "someone-else", resp.ID), ErrAPIKeyNotFound)
	require.NoError(t, svc.Revoke(ctx, user.ID, resp.ID))
	assert.Equal(t, []string{resp.KeyPrefix}, cache.deleted)
	assert.ErrorIs(t, svc.Revoke(ctx, user.ID, resp.ID), ErrAPIKeyNotFound)

	keys, err = svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, keys[0].Revoked)

	others, err := svc.List(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
	assert.NotNil(t, others)
}

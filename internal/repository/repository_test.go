package repository

import (
	"context"
	"testing"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/testutil"
)

// newTestRepository connects to DATABASE_URL, serializes on the advisory
// lock and rebuilds the schema from the embedded migrations.
func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := repo.ResetSchema(ctx); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return repo
}

// seedUser inserts a fresh user and returns it.
func seedUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()

	user := testutil.NewTestUser(t)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

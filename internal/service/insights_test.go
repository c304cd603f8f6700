package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/testutil"
	"github.com/spendlog/spendlog/internal/testutil/memstore"
)

// mapInsightCache memoizes per owner without expiry.
type mapInsightCache struct {
	categories map[string][]model.CategoryInsight
	summaries  map[string]model.Summary
}

func newMapInsightCache() *mapInsightCache {
	return &mapInsightCache{
		categories: make(map[string][]model.CategoryInsight),
		summaries:  make(map[string]model.Summary),
	}
}

func (c *mapInsightCache) CategoryInsights(ctx context.Context, ownerID string,
	compute func(context.Context) ([]model.CategoryInsight, error)) ([]model.CategoryInsight, bool, error) {
	if v, ok := c.categories[ownerID]; ok {
		return v, true, nil
	}
	v, err := compute(ctx)
	if err == nil {
		c.categories[ownerID] = v
	}
	return v, false, err
}

func (c *mapInsightCache) Summary(ctx context.Context, ownerID string,
	compute func(context.Context) (model.Summary, error)) (model.Summary, bool, error) {
	if v, ok := c.summaries[ownerID]; ok {
		return v, true, nil
	}
	v, err := compute(ctx)
	if err == nil {
		c.summaries[ownerID] = v
	}
	return v, false, err
}

func (c *mapInsightCache) InvalidateOwner(_ context.Context, ownerID string) error {
	delete(c.categories, ownerID)
	delete(c.summaries, ownerID)
	return nil
}

// seedScenario stores the reference data set: alice has 100 and 200 of Food
// in January 2025 and 50 of Travel in February; bob has 999 of Food in January.
func seedScenario(t *testing.T, store *memstore.Store) {
	t.Helper()
	store.Seed(
		testutil.NewTestExpense(t, "alice", "100", "Food", testutil.Date(2025, time.January, 5, 0)),
		testutil.NewTestExpense(t, "alice", "200", "Food", testutil.Date(2025, time.January, 20, 0)),
		testutil.NewTestExpense(t, "alice", "50", "Travel", testutil.Date(2025, time.February, 3, 0)),
		testutil.NewTestExpense(t, "bob", "999", "Food", testutil.Date(2025, time.January, 6, 0)),
	)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestInsightsService_Monthly(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	got, err := svc.Monthly(context.Background(), "alice", "", "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2025-01", got[0].Month)
	assert.True(t, got[0].TotalSpent.Equal(dec("300")))
	assert.True(t, got[0].AverageSpent.Equal(dec("150")))
	assert.Equal(t, 2, got[0].ExpenseCount)
	assert.Equal(t, "2025-02", got[1].Month)
}

func TestInsightsService_MonthlyDateRange(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	got, err := svc.Monthly(context.Background(), "alice", "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01", got[0].Month)

	got, err = svc.Monthly(context.Background(), "alice", "2025-02-01", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-02", got[0].Month)
}

func TestInsightsService_MonthlyInvalidDate(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	_, err := svc.Monthly(context.Background(), "alice", "2025-01-01", "2025-13-40")
	var perr *daterange.ParamError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, daterange.ParamEnd, perr.Param)
	assert.Zero(t, store.ListCalls, "nothing is scanned for a bad date")
}

func TestInsightsService_MonthlyReversedRange(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	got, err := svc.Monthly(context.Background(), "alice", "2025-02-01", "2025-01-01")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, store.ListCalls, "a range that matches nothing is not scanned")
}

func TestInsightsService_Categories(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	got, err := svc.Categories(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Food", got[0].Category)
	assert.True(t, got[0].TotalSpent.Equal(dec("300")))
	assert.Equal(t, 2, got[0].ExpenseCount)
	assert.Equal(t, "Travel", got[1].Category)
}

func TestInsightsService_Summary(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)

	got, err := svc.Summary(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, got.TotalSpent.Equal(dec("350")))
	assert.True(t, got.AverageSpent.Equal(dec("116.67")))
	assert.Equal(t, 3, got.ExpenseCount)

	empty, err := svc.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, empty.TotalSpent.IsZero())
	assert.True(t, empty.AverageSpent.IsZero())
	assert.Zero(t, empty.ExpenseCount)
}

func TestInsightsService_OwnerIsolation(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	svc := NewInsightsService(store, nil, nil, nil)
	ctx := context.Background()

	monthly, err := svc.Monthly(ctx, "bob", "", "")
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	assert.True(t, monthly[0].TotalSpent.Equal(dec("999")))

	cats, err := svc.Categories(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.True(t, cats[0].TotalSpent.Equal(dec("999")))

	sum, err := svc.Summary(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ExpenseCount)
}

func TestInsightsService_CacheHitAndInvalidation(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedScenario(t, store)
	cache := newMapInsightCache()
	rec := metrics.NewInMemory()
	insightsSvc := NewInsightsService(store, cache, rec, nil)
	expenseSvc := NewExpenseService(store, cache, rec, nil)
	ctx := context.Background()

	first, err := insightsSvc.Summary(ctx, "alice")
	require.NoError(t, err)
	_, err = insightsSvc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, store.ListCalls)

	_, err = expenseSvc.Create(ctx, "alice", fields("10", "Snack", "Food"))
	require.NoError(t, err)

	after, err := insightsSvc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ExpenseCount+1, after.ExpenseCount)
	assert.Equal(t, 2, store.ListCalls)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.InsightsCacheHits)
	assert.Equal(t, uint64(2), snap.InsightsCacheMisses)
	assert.Equal(t, uint64(2), snap.InsightsDurationCount)
}

func TestInsightsService_StoreError(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.ListErr = errors.New("connection reset")
	svc := NewInsightsService(store, newMapInsightCache(), nil, nil)

	_, err := svc.Categories(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ListErr)

	_, err = svc.Summary(context.Background(), "alice")
	assert.ErrorIs(t, err, store.ListErr)
}

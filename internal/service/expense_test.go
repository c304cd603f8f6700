package service

import (
	"context"
	"errors"
	"strings"
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

type recordingInvalidator struct {
	owners []string
	err    error
}

func (r *recordingInvalidator) InvalidateOwner(_ context.Context, ownerID string) error {
	r.owners = append(r.owners, ownerID)
	return r.err
}

func fields(amount, description, category string) model.ExpenseFields {
	var f model.ExpenseFields
	if amount != "" {
		a := decimal.RequireFromString(amount)
		f.Amount = &a
	}
	if description != "" {
		f.Description = &description
	}
	if category != "" {
		f.Category = &category
	}
	return f
}

func newExpenseService(t *testing.T) (*ExpenseService, *memstore.Store, *recordingInvalidator, *metrics.InMemoryRecorder) {
	t.Helper()
	store := memstore.New()
	inv := &recordingInvalidator{}
	rec := metrics.NewInMemory()
	return NewExpenseService(store, inv, rec, nil), store, inv, rec
}

func TestExpenseService_Create(t *testing.T) {
	t.Parallel()

	svc, store, inv, rec := newExpenseService(t)
	fixed := time.Date(2025, 1, 10, 8, 30, 0, 0, time.FixedZone("X", 3600))
	svc.now = func() time.Time { return fixed }

	e, err := svc.Create(context.Background(), "alice", fields("12.50", "Lunch", "Food"))
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "alice", e.OwnerID)
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, fixed.UTC(), e.CreatedAt)
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"alice"}, inv.owners)
	assert.Equal(t, uint64(1), rec.Snapshot().ExpensesCreated)
}

func TestExpenseService_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      model.ExpenseFields
		field   string
		message string
	}{
		{"zero amount", fields("0", "d", "c"), "amount", "Amount must be greater than zero."},
		{"negative amount", fields("-5", "d", "c"), "amount", "Amount must be greater than zero."},
		{"three decimals", fields("1.005", "d", "c"), "amount", "Ensure that there are no more than 2 decimal places."},
		{"too large", fields("100000000", "d", "c"), "amount", "Ensure that there are no more than 8 digits before the decimal point."},
		{"trailing zeros past the limit", fields("100000000.000", "d", "c"), "amount", "Ensure that there are no more than 8 digits before the decimal point."},
		{"huge exponent", fields("1e20000000", "d", "c"), "amount", "Ensure that there are no more than 8 digits before the decimal point."},
		{"tiny exponent", fields("1e-20000000", "d", "c"), "amount", "Ensure that there are no more than 2 decimal places."},
		{"tiny exponent with long coefficient", fields("123e-5", "d", "c"), "amount", "Ensure that there are no more than 2 decimal places."},
		{"missing amount", fields("", "d", "c"), "amount", "This field is required."},
		{"missing description", fields("1", "", "c"), "description", "This field is required."},
		{"blank description", fields("1", "   ", "c"), "description", "This field may not be blank."},
		{"long description", fields("1", strings.Repeat("x", 256), "c"), "description", "Ensure this field has no more than 255 characters."},
		{"missing category", fields("1", "d", ""), "category", "This field is required."},
		{"long category", fields("1", "d", strings.Repeat("é", 101)), "category", "Ensure this field has no more than 100 characters."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, store, inv, _ := newExpenseService(t)
			_, err := svc.Create(context.Background(), "alice", tt.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
			assert.Zero(t, store.Len())
			assert.Empty(t, inv.owners)
		})
	}
}

func TestExpenseService_BoundaryValuesAccepted(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newExpenseService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", fields("0.01", "d", "c"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", fields("99999999.99", strings.Repeat("d", 255), strings.Repeat("é", 100)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", fields("10.500", "d", "c"))
	require.NoError(t, err, "trailing zeros do not count as extra precision")
	_, err = svc.Create(ctx, "alice", fields("1e7", "d", "c"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", fields("1250e-2", "d", "c"))
	require.NoError(t, err)
}

func TestExpenseService_OwnerIsolation(t *testing.T) {
	t.Parallel()

	svc, _, inv, _ := newExpenseService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)
	inv.owners = nil

	_, err = svc.Get(ctx, "bob", e.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = svc.Replace(ctx, "bob", e.ID, fields("20", "x", "y"))
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = svc.Patch(ctx, "bob", e.ID, fields("20", "", ""))
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	err = svc.Delete(ctx, "bob", e.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	list, err := svc.List(ctx, "bob", ListExpensesInput{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	got, err := svc.Get(ctx, "alice", e.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(10)), "foreign writes must not change the record")
	assert.Empty(t, inv.owners)
}

func TestExpenseService_MissingAndForeignLookAlike(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newExpenseService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)

	_, errForeign := svc.Get(ctx, "bob", e.ID)
	_, errMissing := svc.Get(ctx, "bob", "does-not-exist")
	assert.Equal(t, errMissing, errForeign)
}

func TestExpenseService_ReplaceAndPatch(t *testing.T) {
	t.Parallel()

	svc, _, inv, rec := newExpenseService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)

	_, err = svc.Replace(ctx, "alice", e.ID, fields("20", "", "Food"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)

	replaced, err := svc.Replace(ctx, "alice", e.ID, fields("20", "Dinner", "Restaurants"))
	require.NoError(t, err)
	assert.Equal(t, "Dinner", replaced.Description)
	assert.Equal(t, "Restaurants", replaced.Category)
	assert.Equal(t, e.CreatedAt, replaced.CreatedAt)
	assert.Equal(t, e.ID, replaced.ID)

	patched, err := svc.Patch(ctx, "alice", e.ID, fields("7.25", "", ""))
	require.NoError(t, err)
	assert.True(t, patched.Amount.Equal(decimal.RequireFromString("7.25")))
	assert.Equal(t, "Dinner", patched.Description)

	_, err = svc.Patch(ctx, "alice", e.ID, fields("0", "", ""))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Amount must be greater than zero.", verr.Message)

	unchanged, err := svc.Patch(ctx, "alice", e.ID, model.ExpenseFields{})
	require.NoError(t, err)
	assert.True(t, unchanged.Amount.Equal(decimal.RequireFromString("7.25")))

	assert.Equal(t, uint64(2), rec.Snapshot().ExpensesUpdated)
	assert.Len(t, inv.owners, 3)
}

func TestExpenseService_Delete(t *testing.T) {
	t.Parallel()

	svc, store, inv, rec := newExpenseService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", e.ID))
	assert.Zero(t, store.Len())
	assert.ErrorIs(t, svc.Delete(ctx, "alice", e.ID), ErrExpenseNotFound)
	assert.Equal(t, uint64(1), rec.Snapshot().ExpensesDeleted)
	assert.Equal(t, []string{"alice", "alice"}, inv.owners)
}

func TestExpenseService_InvalidationFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	inv := &recordingInvalidator{err: errors.New("redis down")}
	svc := NewExpenseService(store, inv, nil, nil)

	_, err := svc.Create(context.Background(), "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestExpenseService_NilInvalidator(t *testing.T) {
	t.Parallel()

	svc := NewExpenseService(memstore.New(), nil, nil, nil)
	_, err := svc.Create(context.Background(), "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)
}

func TestExpenseService_ListFilters(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newExpenseService(t)
	ctx := context.Background()

	jan := testutil.NewTestExpense(t, "alice", "100", "Food", testutil.Date(2025, time.January, 5, 0))
	janLate := testutil.NewTestExpense(t, "alice", "200", "Travel", testutil.Date(2025, time.January, 31, 23*time.Hour+59*time.Minute+59*time.Second))
	feb := testutil.NewTestExpense(t, "alice", "50", "Food", testutil.Date(2025, time.February, 1, 0))
	store.Seed(jan, janLate, feb)

	all, err := svc.List(ctx, "alice", ListExpensesInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, feb.ID, all[0].ID, "newest first")
	assert.Equal(t, jan.ID, all[2].ID)

	january, err := svc.List(ctx, "alice", ListExpensesInput{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Len(t, january, 2, "end_date covers the whole day")

	food, err := svc.List(ctx, "alice", ListExpensesInput{Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	inverted, err := svc.List(ctx, "alice", ListExpensesInput{StartDate: "2025-02-01", EndDate: "2025-01-01"})
	require.NoError(t, err)
	assert.Empty(t, inverted)

	_, err = svc.List(ctx, "alice", ListExpensesInput{StartDate: "2025-13-40"})
	var perr *daterange.ParamError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, daterange.ParamStart, perr.Param)
}

func TestExpenseService_ListReversedRange(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newExpenseService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "alice", fields("10", "Lunch", "Food"))
	require.NoError(t, err)

	got, err := svc.List(ctx, "alice", ListExpensesInput{StartDate: "2025-02-01", EndDate: "2025-01-01"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, store.ListCalls)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// Field validation messages.
const (
	msgRequired       = "This field is required."
	msgBlank          = "This field may not be blank."
	msgAmountPositive = "Amount must be greater than zero."
)

// ExpenseStore persists expenses. Every method is scoped to ownerID.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, e *model.Expense) error
	ListExpenses(ctx context.Context, ownerID string, f repository.ExpenseFilter) ([]model.Expense, error)
	GetExpense(ctx context.Context, ownerID, id string) (*model.Expense, error)
	UpdateExpense(ctx context.Context, ownerID, id string, fields model.ExpenseFields) (*model.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
}

// InsightInvalidator drops cached insights after an owner's data changes.
type InsightInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// ExpenseService handles expense business logic.
type ExpenseService struct {
	store       ExpenseStore
	invalidator InsightInvalidator
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewExpenseService creates a new ExpenseService. invalidator may be nil
// when insight caching is disabled.
func NewExpenseService(store ExpenseStore, invalidator InsightInvalidator, recorder metrics.Recorder, logger *slog.Logger) *ExpenseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{
		store:       store,
		invalidator: invalidator,
		metrics:     recorder,
		logger:      logger,
		now:         time.Now,
	}
}

// ListExpensesInput narrows a listing. Empty strings mean no filter.
type ListExpensesInput struct {
	StartDate string
	EndDate   string
	Category  string
}

// Create validates in and stores a new expense owned by ownerID.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in model.ExpenseFields) (*model.Expense, error) {
	if err := validateFields(in, true); err != nil {
		return nil, err
	}

	e := &model.Expense{
		ID:          ulid.Make().String(),
		OwnerID:     ownerID,
		Amount:      *in.Amount,
		Description: *in.Description,
		Category:    *in.Category,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.store.InsertExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.metrics.IncExpenseCreated()
	s.invalidate(ctx, ownerID)

	return e, nil
}

// Get returns one of ownerID's expenses.
func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	e, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return nil, translateStoreError(err, "failed to get expense")
	}
	return e, nil
}

// List returns ownerID's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, ownerID string, in ListExpensesInput) ([]model.Expense, error) {
	rng, err := daterange.Parse(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if rng.Empty() {
		return []model.Expense{}, nil
	}

	expenses, err := s.store.ListExpenses(ctx, ownerID, repository.ExpenseFilter{
		Range:    rng,
		Category: in.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	return expenses, nil
}

// Replace overwrites every mutable field of an expense.
func (s *ExpenseService) Replace(ctx context.Context, ownerID, id string, in model.ExpenseFields) (*model.Expense, error) {
	if err := validateFields(in, true); err != nil {
		return nil, err
	}
	return s.update(ctx, ownerID, id, in)
}

// Patch changes only the fields set in in.
func (s *ExpenseService) Patch(ctx context.Context, ownerID, id string, in model.ExpenseFields) (*model.Expense, error) {
	if err := validateFields(in, false); err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return s.Get(ctx, ownerID, id)
	}
	return s.update(ctx, ownerID, id, in)
}

func (s *ExpenseService) update(ctx context.Context, ownerID, id string, in model.ExpenseFields) (*model.Expense, error) {
	e, err := s.store.UpdateExpense(ctx, ownerID, id, in)
	if err != nil {
		return nil, translateStoreError(err, "failed to update expense")
	}

	s.metrics.IncExpenseUpdated()
	s.invalidate(ctx, ownerID)

	return e, nil
}

// Delete removes one of ownerID's expenses.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return translateStoreError(err, "failed to delete expense")
	}

	s.metrics.IncExpenseDeleted()
	s.invalidate(ctx, ownerID)

	return nil
}

func (s *ExpenseService) invalidate(ctx context.Context, ownerID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateOwner(ctx, ownerID); err != nil {
		s.logger.Warn("failed to invalidate insights cache",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}
}

func translateStoreError(err error, op string) error {
	if errors.Is(err, repository.ErrExpenseNotFound) {
		return ErrExpenseNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// validateFields checks the set fields of in. With requireAll, missing
// fields are errors too. Fields are checked in amount, description,
// category order and the first failure is returned.
func validateFields(in model.ExpenseFields, requireAll bool) error {
	if in.Amount == nil {
		if requireAll {
			return invalid("amount", msgRequired)
		}
	} else if err := validateAmount(*in.Amount); err != nil {
		return err
	}

	if err := validateText("description", in.Description, model.MaxDescriptionLength, requireAll); err != nil {
		return err
	}
	return validateText("category", in.Category, model.MaxCategoryLength, requireAll)
}

// validateAmount checks that amount fits NUMERIC(10,2). Both limits are
// decided from the coefficient's digit count and the exponent, so an
// extreme exponent such as 1e20000000 is rejected without rescaling.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", msgAmountPositive)
	}

	digits, exp := amount.NumDigits(), int(amount.Exponent())
	if exp < -model.AmountScale {
		// The coefficient must end in enough zeros to drop the extra places.
		extra := -model.AmountScale - exp
		if digits <= extra || !amount.Equal(amount.Round(model.AmountScale)) {
			return invalid("amount", fmt.Sprintf("Ensure that there are no more than %d decimal places.", model.AmountScale))
		}
	}
	if intDigits := model.AmountPrecision - model.AmountScale; digits+exp > intDigits {
		return invalid("amount", fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", intDigits))
	}
	return nil
}

func validateText(field string, value *string, maxLen int, required bool) error {
	if value == nil {
		if required {
			return invalid(field, msgRequired)
		}
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		return invalid(field, msgBlank)
	}
	if utf8.RuneCountInString(*value) > maxLen {
		return invalid(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
	}
	return nil
}

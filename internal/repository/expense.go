package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/model"
)

// ErrExpenseNotFound is returned when no expense with the id exists for the owner.
var ErrExpenseNotFound = errors.New("expense not found")

const expensesTable = "expenses"

// expenseColumns is the select list matching scanExpense.
var expenseColumns = []string{
	"id",
	"owner_id",
	"amount::text",
	"description",
	"category",
	"created_at",
}

// ExpenseFilter narrows an owner's expense scan.
type ExpenseFilter struct {
	Range    daterange.Range
	Category string
}

// InsertExpense stores a new expense. ID, OwnerID and CreatedAt must be set.
func (r *Repository) InsertExpense(ctx context.Context, e *model.Expense) error {
	query, args, err := psql.Insert(expensesTable).
		Columns("id", "owner_id", "amount", "description", "category", "created_at").
		Values(
			e.ID,
			e.OwnerID,
			squirrel.Expr("?::numeric", e.Amount.String()),
			e.Description,
			e.Category,
			e.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return mapError(err, "failed to insert expense", nil)
	}
	return nil
}

// ListExpenses returns the owner's expenses matching f, newest first.
func (r *Repository) ListExpenses(ctx context.Context, ownerID string, f ExpenseFilter) ([]model.Expense, error) {
	builder := psql.Select(expenseColumns...).
		From(expensesTable).
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC")

	if f.Range.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": *f.Range.From})
	}
	if f.Range.Until != nil {
		builder = builder.Where(squirrel.Lt{"created_at": *f.Range.Until})
	}
	if f.Category != "" {
		builder = builder.Where(squirrel.Eq{"category": f.Category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to list expenses", nil)
	}
	defer rows.Close()

	expenses := make([]model.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// GetExpense returns one expense owned by ownerID.
func (r *Repository) GetExpense(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	query, args, err := psql.Select(expenseColumns...).
		From(expensesTable).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}

	e, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "failed to get expense", ErrExpenseNotFound)
	}
	return e, nil
}

// UpdateExpense applies fields to the owner's expense and returns the stored row.
// A missing id and a foreign owner both yield ErrExpenseNotFound.
func (r *Repository) UpdateExpense(ctx context.Context, ownerID, id string, fields model.ExpenseFields) (*model.Expense, error) {
	if fields.IsEmpty() {
		return r.GetExpense(ctx, ownerID, id)
	}

	builder := psql.Update(expensesTable).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		Suffix("RETURNING " + strings.Join(expenseColumns, ", "))

	if fields.Amount != nil {
		builder = builder.Set("amount", squirrel.Expr("?::numeric", fields.Amount.String()))
	}
	if fields.Description != nil {
		builder = builder.Set("description", *fields.Description)
	}
	if fields.Category != nil {
		builder = builder.Set("category", *fields.Category)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	e, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "failed to update expense", ErrExpenseNotFound)
	}
	return e, nil
}

// DeleteExpense removes the owner's expense permanently.
func (r *Repository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	query, args, err := psql.Delete(expensesTable).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "failed to delete expense", nil)
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// scanExpense scans a row selected with expenseColumns.
func scanExpense(row pgx.Row) (*model.Expense, error) {
	var (
		e      model.Expense
		amount string
	)

	if err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&amount,
		&e.Description,
		&e.Category,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	e.Amount = parsed
	e.CreatedAt = e.CreatedAt.UTC()

	return &e, nil
}

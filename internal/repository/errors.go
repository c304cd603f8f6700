package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Generic storage errors.
var (
	ErrDuplicate      = errors.New("duplicate record")
	ErrCheckViolation = errors.New("check constraint violated")
)

// Postgres error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapError converts pgx errors into repository errors.
// notFound is returned for missing rows and dangling foreign keys.
// Context errors pass through untouched.
func mapError(err error, op string, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case codeForeignKeyViolation:
			if notFound != nil {
				return notFound
			}
		case codeCheckViolation:
			return fmt.Errorf("%s: %w", op, ErrCheckViolation)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a Postgres unique violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

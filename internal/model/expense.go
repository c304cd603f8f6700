// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field bounds for expenses.
const (
	MaxDescriptionLength = 255
	MaxCategoryLength    = 100

	// AmountScale is the number of fractional digits stored for amounts.
	AmountScale = 2
	// AmountPrecision is the total number of digits stored for amounts.
	AmountPrecision = 10
)

// Expense is a single owned spending record.
type Expense struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExpenseFields holds the mutable fields of an expense.
// A nil field is left unchanged by an update.
type ExpenseFields struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *string
}

// IsEmpty reports whether no field is set.
func (f ExpenseFields) IsEmpty() bool {
	return f.Amount == nil && f.Description == nil && f.Category == nil
}

// Apply copies the set fields onto e.
func (f ExpenseFields) Apply(e *Expense) {
	if f.Amount != nil {
		e.Amount = *f.Amount
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.Category != nil {
		e.Category = *f.Category
	}
}

// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/service"
)

// ExpenseRequest is the body of create, replace and patch requests.
// Amount accepts a JSON number or a numeric string. Owner, id and
// created_at are not client-settable and are ignored if sent.
type ExpenseRequest struct {
	Amount      json.RawMessage `json:"amount,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
}

// Fields converts the request into the service input. Absent fields stay nil.
func (r ExpenseRequest) Fields() (model.ExpenseFields, error) {
	fields := model.ExpenseFields{
		Description: r.Description,
		Category:    r.Category,
	}

	if len(r.Amount) == 0 {
		return fields, nil
	}
	if bytes.Equal(bytes.TrimSpace(r.Amount), []byte("null")) {
		return fields, &service.ValidationError{Field: "amount", Message: "This field may not be null."}
	}

	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(r.Amount); err != nil {
		return fields, &service.ValidationError{Field: "amount", Message: "A valid number is required."}
	}
	fields.Amount = &amount
	return fields, nil
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonthlyInsightResponse is one month bucket.
type MonthlyInsightResponse struct {
	Month        string `json:"month"`
	TotalSpent   string `json:"total_spent"`
	AverageSpent string `json:"average_spent"`
	ExpenseCount int    `json:"expense_count"`
}

// CategoryInsightResponse is one category group.
type CategoryInsightResponse struct {
	Category     string `json:"category"`
	TotalSpent   string `json:"total_spent"`
	ExpenseCount int    `json:"expense_count"`
}

// SummaryResponse is the all-time aggregate of an owner.
type SummaryResponse struct {
	TotalSpent   string `json:"total_spent"`
	AverageSpent string `json:"average_spent"`
	ExpenseCount int    `json:"expense_count"`
}

// Money renders an amount with exactly two fractional digits.
func Money(d decimal.Decimal) string {
	return d.StringFixed(model.AmountScale)
}

// ToExpenseResponse converts an Expense model to ExpenseResponse DTO.
func ToExpenseResponse(e *model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Owner:       e.OwnerID,
		Amount:      Money(e.Amount),
		Description: e.Description,
		Category:    e.Category,
		CreatedAt:   e.CreatedAt,
	}
}

// ToExpenseList converts expenses, returning an empty slice rather than nil.
func ToExpenseList(expenses []model.Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, len(expenses))
	for i := range expenses {
		out[i] = ToExpenseResponse(&expenses[i])
	}
	return out
}

// ToMonthlyInsights converts month buckets in order.
func ToMonthlyInsights(in []model.MonthlyInsight) []MonthlyInsightResponse {
	out := make([]MonthlyInsightResponse, len(in))
	for i, m := range in {
		out[i] = MonthlyInsightResponse{
			Month:        m.Month,
			TotalSpent:   Money(m.TotalSpent),
			AverageSpent: Money(m.AverageSpent),
			ExpenseCount: m.ExpenseCount,
		}
	}
	return out
}

// ToCategoryInsights converts category groups in order.
func ToCategoryInsights(in []model.CategoryInsight) []CategoryInsightResponse {
	out := make([]CategoryInsightResponse, len(in))
	for i, c := range in {
		out[i] = CategoryInsightResponse{
			Category:     c.Category,
			TotalSpent:   Money(c.TotalSpent),
			ExpenseCount: c.ExpenseCount,
		}
	}
	return out
}

// ToSummary converts a summary.
func ToSummary(s model.Summary) SummaryResponse {
	return SummaryResponse{
		TotalSpent:   Money(s.TotalSpent),
		AverageSpent: Money(s.AverageSpent),
		ExpenseCount: s.ExpenseCount,
	}
}

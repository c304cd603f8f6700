package model

import "github.com/shopspring/decimal"

// MonthLayout is the rendering of a monthly bucket key.
const MonthLayout = "2006-01"

// MonthlyInsight aggregates the expenses of one calendar month.
type MonthlyInsight struct {
	Month        string          `json:"month"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	AverageSpent decimal.Decimal `json:"average_spent"`
	ExpenseCount int             `json:"expense_count"`
}

// CategoryInsight aggregates the expenses of one category.
type CategoryInsight struct {
	Category     string          `json:"category"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	ExpenseCount int             `json:"expense_count"`
}

// Summary aggregates every expense of an owner.
type Summary struct {
	TotalSpent   decimal.Decimal `json:"total_spent"`
	AverageSpent decimal.Decimal `json:"average_spent"`
	ExpenseCount int             `json:"expense_count"`
}

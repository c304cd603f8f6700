// Package insights computes spending aggregates over an owner's expenses.
//
// The functions are pure: callers pass an already owner-scoped (and, for
// Monthly, date-filtered) slice and receive freshly allocated results.
// Averages are rounded to two decimal places.
package insights

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/model"
)

const averagePlaces = 2

// Monthly groups expenses by the UTC calendar month of their creation time.
// The result is sorted ascending by month and contains only months that
// have at least one expense.
func Monthly(expenses []model.Expense) []model.MonthlyInsight {
	type bucket struct {
		month time.Time
		total decimal.Decimal
		count int
	}

	buckets := make(map[time.Time]*bucket)
	for _, e := range expenses {
		created := e.CreatedAt.UTC()
		key := time.Date(created.Year(), created.Month(), 1, 0, 0, 0, 0, time.UTC)

		b, ok := buckets[key]
		if !ok {
			b = &bucket{month: key}
			buckets[key] = b
		}
		b.total = b.total.Add(e.Amount)
		b.count++
	}

	result := make([]model.MonthlyInsight, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, model.MonthlyInsight{
			Month:        b.month.Format(model.MonthLayout),
			TotalSpent:   b.total,
			AverageSpent: average(b.total, b.count),
			ExpenseCount: b.count,
		})
	}

	// YYYY-MM sorts lexically in calendar order.
	slices.SortFunc(result, func(a, b model.MonthlyInsight) int {
		return strings.Compare(a.Month, b.Month)
	})

	return result
}

// ByCategory groups expenses by exact category string.
// The result is sorted by total descending, then by category ascending.
func ByCategory(expenses []model.Expense) []model.CategoryInsight {
	index := make(map[string]int)
	result := make([]model.CategoryInsight, 0)

	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(result)
			index[e.Category] = i
			result = append(result, model.CategoryInsight{Category: e.Category})
		}
		result[i].TotalSpent = result[i].TotalSpent.Add(e.Amount)
		result[i].ExpenseCount++
	}

	slices.SortFunc(result, func(a, b model.CategoryInsight) int {
		if c := b.TotalSpent.Cmp(a.TotalSpent); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})

	return result
}

// Summarize totals every expense. An empty input yields zero values.
func Summarize(expenses []model.Expense) model.Summary {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	return model.Summary{
		TotalSpent:   total,
		AverageSpent: average(total, len(expenses)),
		ExpenseCount: len(expenses),
	}
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(count)), averagePlaces)
}

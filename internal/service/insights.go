package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/insights"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// ExpenseLister is the read side of ExpenseStore.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, ownerID string, f repository.ExpenseFilter) ([]model.Expense, error)
}

// InsightCache memoizes date-independent aggregates per owner.
type InsightCache interface {
	CategoryInsights(ctx context.Context, ownerID string,
		compute func(context.Context) ([]model.CategoryInsight, error)) ([]model.CategoryInsight, bool, error)
	Summary(ctx context.Context, ownerID string,
		compute func(context.Context) (model.Summary, error)) (model.Summary, bool, error)
}

// InsightsService computes spending aggregates over an owner's expenses.
//
// Monthly insights honor the optional date range. Category insights and the
// summary always cover every expense of the owner.
type InsightsService struct {
	store   ExpenseLister
	cache   InsightCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewInsightsService creates a new InsightsService. cache may be nil.
func NewInsightsService(store ExpenseLister, cache InsightCache, recorder metrics.Recorder, logger *slog.Logger) *InsightsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightsService{
		store:   store,
		cache:   cache,
		metrics: recorder,
		logger:  logger,
	}
}

// Monthly returns per-month totals for ownerID, ascending by month.
// startDate and endDate are optional YYYY-MM-DD bounds; a malformed one
// yields a *daterange.ParamError and nothing is computed.
func (s *InsightsService) Monthly(ctx context.Context, ownerID, startDate, endDate string) ([]model.MonthlyInsight, error) {
	rng, err := daterange.Parse(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if rng.Empty() {
		return []model.MonthlyInsight{}, nil
	}

	start := time.Now()
	defer func() { s.metrics.ObserveInsightsDuration(time.Since(start)) }()

	expenses, err := s.scan(ctx, ownerID, rng)
	if err != nil {
		return nil, err
	}
	return insights.Monthly(expenses), nil
}

// Categories returns per-category totals for ownerID, largest first.
func (s *InsightsService) Categories(ctx context.Context, ownerID string) ([]model.CategoryInsight, error) {
	compute := func(ctx context.Context) ([]model.CategoryInsight, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveInsightsDuration(time.Since(start)) }()

		expenses, err := s.scan(ctx, ownerID, daterange.Range{})
		if err != nil {
			return nil, err
		}
		return insights.ByCategory(expenses), nil
	}

	if s.cache == nil {
		return compute(ctx)
	}
	result, hit, err := s.cache.CategoryInsights(ctx, ownerID, compute)
	s.recordLookup(hit, err)
	return result, err
}

// Summary returns the total, average and count over all of ownerID's expenses.
func (s *InsightsService) Summary(ctx context.Context, ownerID string) (model.Summary, error) {
	compute := func(ctx context.Context) (model.Summary, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveInsightsDuration(time.Since(start)) }()

		expenses, err := s.scan(ctx, ownerID, daterange.Range{})
		if err != nil {
			return model.Summary{}, err
		}
		return insights.Summarize(expenses), nil
	}

	if s.cache == nil {
		return compute(ctx)
	}
	result, hit, err := s.cache.Summary(ctx, ownerID, compute)
	s.recordLookup(hit, err)
	return result, err
}

func (s *InsightsService) scan(ctx context.Context, ownerID string, rng daterange.Range) ([]model.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, ownerID, repository.ExpenseFilter{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}
	return expenses, nil
}

func (s *InsightsService) recordLookup(hit bool, err error) {
	switch {
	case err != nil:
	case hit:
		s.metrics.IncInsightsCacheHit()
	default:
		s.metrics.IncInsightsCacheMiss()
	}
}

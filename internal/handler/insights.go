package handler

import (
	"log/slog"
	"net/http"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/handler/dto"
	"github.com/spendlog/spendlog/internal/service"
)

// InsightsHandler serves the read-only aggregate endpoints.
type InsightsHandler struct {
	svc    *service.InsightsService
	logger *slog.Logger
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(svc *service.InsightsService, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "insights")),
	}
}

// Monthly handles GET /api/expenses/monthly-insights.
func (h *InsightsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	months, err := h.svc.Monthly(r.Context(), owner, query.Get(daterange.ParamStart), query.Get(daterange.ParamEnd))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToMonthlyInsights(months))
}

// Categories handles GET /api/expenses/category-insights.
// Date parameters are not read.
func (h *InsightsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	categories, err := h.svc.Categories(r.Context(), owner)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToCategoryInsights(categories))
}

// Summary handles GET /api/expenses/summary.
// Date parameters are not read.
func (h *InsightsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(r.Context(), owner)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToSummary(summary))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/handler/dto"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/service"
)

// ExpenseHandler handles HTTP requests for expense operations.
type ExpenseHandler struct {
	svc    *service.ExpenseService
	logger *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "expenses")),
	}
}

// List handles GET /api/expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	expenses, err := h.svc.List(r.Context(), owner, service.ListExpensesInput{
		StartDate: query.Get(daterange.ParamStart),
		EndDate:   query.Get(daterange.ParamEnd),
		Category:  query.Get("category"),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToExpenseList(expenses))
}

// Create handles POST /api/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	fields, ok := decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.svc.Create(r.Context(), owner, fields)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("expense_created",
		slog.String("expense_id", expense.ID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeSuccess(w, http.StatusCreated, dto.ToExpenseResponse(expense))
}

// Get handles GET /api/expenses/{id}.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	expense, err := h.svc.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToExpenseResponse(expense))
}

// Replace handles PUT /api/expenses/{id}.
func (h *ExpenseHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.svc.Replace)
}

// Patch handles PATCH /api/expenses/{id}.
func (h *ExpenseHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.svc.Patch)
}

func (h *ExpenseHandler) update(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, ownerID, id string, in model.ExpenseFields) (*model.Expense, error)) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	fields, ok := decodeExpense(w, r)
	if !ok {
		return
	}

	expense, err := apply(r.Context(), owner, chi.URLParam(r, "id"), fields)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("expense_updated",
		slog.String("expense_id", expense.ID),
		slog.String("method", r.Method),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeSuccess(w, http.StatusOK, dto.ToExpenseResponse(expense))
}

// Delete handles DELETE /api/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("expense_deleted",
		slog.String("expense_id", id),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeSuccess(w, http.StatusOK, nil)
}

func decodeExpense(w http.ResponseWriter, r *http.Request) (model.ExpenseFields, bool) {
	var req dto.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return model.ExpenseFields{}, false
	}

	fields, err := req.Fields()
	if err != nil {
		badRequest(w, err)
		return model.ExpenseFields{}, false
	}
	return fields, true
}

// requireOwner returns the authenticated caller's user id. The auth
// middleware runs first, so a miss only happens on a misconfigured route.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, middleware.MsgUnauthorized)
	}
	return owner, ok
}

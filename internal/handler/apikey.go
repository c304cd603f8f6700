package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	svc    *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "api_keys")),
	}
}

// Create handles POST /api/api-keys. The plaintext key is only ever
// returned here.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req model.APIKeyCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, created)
}

// List handles GET /api/api-keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	keys, err := h.svc.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, keys)
}

// Revoke handles DELETE /api/api-keys/{key_id}. Foreign, missing and
// already revoked keys all answer 404.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.svc.Revoke(r.Context(), userID, chi.URLParam(r, "key_id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

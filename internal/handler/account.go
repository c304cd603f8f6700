package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spendlog/spendlog/internal/handler/dto"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/service"
)

// AccountHandler serves registration and token endpoints.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "accounts")),
	}
}

// Register handles POST /api/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// Token handles POST /api/token.
func (h *AccountHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Username == "" {
		writeFailure(w, http.StatusBadRequest, "username: This field is required.")
		return
	}
	if req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "password: This field is required.")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Warn("login_failed",
				slog.String("ip", r.RemoteAddr),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
			)
		}
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// Refresh handles POST /api/token/refresh.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Refresh == "" {
		writeFailure(w, http.StatusBadRequest, "refresh: This field is required.")
		return
	}

	access, err := h.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, dto.AccessTokenResponse{Access: access})
}

// Package handler provides HTTP request handlers.
//
// Every JSON response uses the same envelope: {"success": true, "data": ...}
// on success and {"success": false, "error": "..."} on failure.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spendlog/spendlog/internal/daterange"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/service"
)

const msgInternal = "internal server error"

// Request body errors, phrased for the client.
var (
	errBodyRequired = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
	errMalformed    = errors.New("JSON parse error")
	errBadBody      = errors.New("invalid request body")
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler serves the routes that belong to no resource.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %q not allowed", r.Method))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureEnvelope{Success: false, Error: message})
}

// decodeJSON reads a single JSON object from r into dst. The returned error
// is already phrased for the client.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return errBodyRequired
	case errors.As(err, &maxErr):
		return errBodyTooLarge
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &service.ValidationError{Field: typeErr.Field, Message: "Incorrect type, received " + typeErr.Value + "."}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return errMalformed
	default:
		return errBadBody
	}
}

// respondError maps service and parameter errors to responses. Anything
// unrecognised is logged and answered with a bare 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validation *service.ValidationError
	var param *daterange.ParamError

	switch {
	case errors.As(err, &validation):
		writeFailure(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &param):
		writeFailure(w, http.StatusBadRequest, param.Error())
	case errors.Is(err, service.ErrExpenseNotFound):
		writeFailure(w, http.StatusNotFound, service.ErrExpenseNotFound.Error())
	case errors.Is(err, service.ErrAPIKeyNotFound):
		writeFailure(w, http.StatusNotFound, service.ErrAPIKeyNotFound.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		writeFailure(w, http.StatusBadRequest, "username: "+service.ErrUsernameTaken.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, "no active account found with the given credentials")
	case errors.Is(err, service.ErrInvalidToken):
		writeFailure(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
	default:
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeFailure(w, http.StatusInternalServerError, msgInternal)
	}
}

// badRequest answers a decodeJSON failure.
func badRequest(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		writeFailure(w, http.StatusBadRequest, validation.Error())
		return
	}
	if errors.Is(err, errBodyTooLarge) {
		writeFailure(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeFailure(w, http.StatusBadRequest, err.Error())
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/civitas/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const maxBodyBytes = 1 << 16

// RespondJSON writes payload with the given status. Encoding failures can
// only be logged: the header is already on the wire.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("response encode failed", "status", status, "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{Success: true, Data: data})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	body := APIResponse{Error: &APIError{Code: appErr.Code, Message: appErr.Message, Details: details}}
	RespondJSON(w, appErr.Status, body)
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
// and trailing content.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// RespondDomainError maps an engine error onto its category. Only
// validation errors echo their message back to the caller.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError
	var details any

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrAuth):
		appErr = ErrNotAuthorized
	case errors.Is(err, domain.ErrState):
		appErr = ErrInvalidState
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrValidation):
		appErr = ErrValidationFailed
		details = err.Error()
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, details)
}

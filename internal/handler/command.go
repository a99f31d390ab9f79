package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/josh-kwaku/civitas/internal/auth"
	"github.com/josh-kwaku/civitas/internal/domain"
)

type dispatcher interface {
	Dispatch(ctx context.Context, from, body string) domain.Reply
}

// CommandHandler runs a command synchronously for the token holder. A
// rejected command is still a 200: the reply carries the outcome.
type CommandHandler struct {
	router dispatcher
}

func NewCommandHandler(router dispatcher) *CommandHandler {
	return &CommandHandler{router: router}
}

type commandRequest struct {
	Body string `json:"body"`
}

func (r commandRequest) Validate() []FieldError {
	if strings.TrimSpace(r.Body) == "" {
		return []FieldError{{Field: "body", Message: "required"}}
	}
	return nil
}

func (h *CommandHandler) Execute(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	RespondSuccess(w, http.StatusOK, h.router.Dispatch(r.Context(), email, req.Body))
}

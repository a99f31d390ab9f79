package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/civitas/internal/auth"
	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
)

const maxHistoryLimit = 200

type ledgerReader interface {
	EnsureAccount(ctx context.Context, email string) error
	GetBalance(ctx context.Context, email string) (int64, error)
	History(ctx context.Context, email string, limit int) ([]domain.LedgerEntry, error)
}

type AccountHandler struct {
	ledger ledgerReader
}

func NewAccountHandler(ledger ledgerReader) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

type balanceDTO struct {
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
}

type entryDTO struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Delta         int64     `json:"delta"`
	Note          string    `json:"note"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
}

func toEntryDTO(e *domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:            e.ID.String(),
		Timestamp:     e.Timestamp,
		Type:          string(e.Type()),
		Delta:         e.Delta,
		Note:          e.Note,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter(),
	}
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	if err := h.ledger.EnsureAccount(r.Context(), email); err != nil {
		logging.FromContext(r.Context()).Error("failed to open account", "error", err)
		RespondDomainError(w, err)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), email)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{Email: email, Balance: balance})
}

func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be between 1 and 200"}})
			return
		}
		limit = n
	}

	entries, err := h.ledger.History(r.Context(), email, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list history", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

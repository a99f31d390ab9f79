package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
)

const dateLayout = "2006-01-02"

type causaReader interface {
	Get(ctx context.Context, id int64) (*domain.Causa, error)
	ListActive(ctx context.Context) ([]domain.Causa, error)
}

type commissioReader interface {
	Get(ctx context.Context, id int64) (*domain.Commissio, error)
	ListActive(ctx context.Context) ([]domain.Commissio, error)
}

// ListingHandler serves read-only views of causae and commissiones.
type ListingHandler struct {
	causae       causaReader
	commissiones commissioReader
}

func NewListingHandler(causae causaReader, commissiones commissioReader) *ListingHandler {
	return &ListingHandler{causae: causae, commissiones: commissiones}
}

type causaDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Creator     string    `json:"creator"`
	Status      string    `json:"status"`
	Options     []string  `json:"options"`
	Pools       []int64   `json:"pools"`
	Shares      []string  `json:"shares"`
	TotalPot    int64     `json:"total_pot"`
	MinWager    int64     `json:"min_wager"`
	Votes       int       `json:"votes"`
	ClosingDate string    `json:"closing_date"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCausaDTO(c *domain.Causa) causaDTO {
	shares := causa.Shares(c)
	pct := make([]string, len(shares))
	for i, s := range shares {
		pct[i] = s.StringFixed(1)
	}
	return causaDTO{
		ID:          c.ID,
		Title:       c.Title,
		Creator:     c.Creator,
		Status:      string(c.Status),
		Options:     c.Options,
		Pools:       c.OptionPools(),
		Shares:      pct,
		TotalPot:    c.TotalPot,
		MinWager:    c.MinWager,
		Votes:       len(c.Votes),
		ClosingDate: c.ClosingDate.Format(dateLayout),
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
	}
}

type commissioDTO struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Creator     string     `json:"creator"`
	Status      string     `json:"status"`
	Reward      int64      `json:"reward"`
	Assignee    string     `json:"assignee,omitempty"`
	Expiry      string     `json:"expiry"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toCommissioDTO(c *domain.Commissio) commissioDTO {
	return commissioDTO{
		ID:          c.ID,
		Title:       c.Title,
		Creator:     c.Creator,
		Status:      string(c.Status),
		Reward:      c.Reward,
		Assignee:    c.Assignee,
		Expiry:      c.Expiry.Format(dateLayout),
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		CompletedAt: c.CompletedAt,
	}
}

func idFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *ListingHandler) ListCausae(w http.ResponseWriter, r *http.Request) {
	list, err := h.causae.ListActive(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list causae", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]causaDTO, len(list))
	for i := range list {
		dtos[i] = toCausaDTO(&list[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ListingHandler) GetCausa(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	c, err := h.causae.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toCausaDTO(c))
}

func (h *ListingHandler) ListCommissiones(w http.ResponseWriter, r *http.Request) {
	list, err := h.commissiones.ListActive(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list commissiones", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]commissioDTO, len(list))
	for i := range list {
		dtos[i] = toCommissioDTO(&list[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ListingHandler) GetCommissio(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	c, err := h.commissiones.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toCommissioDTO(c))
}

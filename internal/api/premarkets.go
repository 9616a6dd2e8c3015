package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
)

type premarketList struct {
	Premarkets []*models.Premarket `json:"premarkets"`
}

// Column widths of the premarket day and date
const (
	maxPremarketDayLength  = 16
	maxPremarketDateLength = 32
)

func validatePremarket(p *models.Premarket) error {
	p.Day = strings.TrimSpace(p.Day)
	p.Date = strings.TrimSpace(p.Date)
	if p.Day == "" {
		return &journal.ValidationError{Field: "day", Message: "is required"}
	}
	if p.Date == "" {
		return &journal.ValidationError{Field: "date", Message: "is required"}
	}
	if err := journal.CheckLength("day", p.Day, maxPremarketDayLength); err != nil {
		return err
	}
	return journal.CheckLength("date", p.Date, maxPremarketDateLength)
}

// ListPremarkets handles GET /premarkets
func (h *Handler) ListPremarkets(w http.ResponseWriter, r *http.Request) {
	list, err := cached(h, r, cache.KeyPremarkets, func(ctx context.Context) (premarketList, error) {
		premarkets, err := h.premarkets.ListPremarkets(ctx)
		return premarketList{Premarkets: premarkets}, err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// CreatePremarket handles POST /premarkets
func (h *Handler) CreatePremarket(w http.ResponseWriter, r *http.Request) {
	var p models.Premarket
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, err)
		return
	}
	p.ID = ""
	if err := validatePremarket(&p); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.premarkets.CreatePremarket(r.Context(), &p); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyPremarkets)

	respondJSON(w, http.StatusCreated, p)
}

// GetPremarket handles GET /premarkets/{id}
func (h *Handler) GetPremarket(w http.ResponseWriter, r *http.Request) {
	p, err := h.premarkets.GetPremarket(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// UpdatePremarket handles PUT /premarkets/{id}
func (h *Handler) UpdatePremarket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := h.premarkets.GetPremarket(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := decodeJSON(r, p); err != nil {
		respondError(w, r, err)
		return
	}
	p.ID = id
	if err := validatePremarket(p); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.premarkets.UpdatePremarket(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyPremarkets)

	respondJSON(w, http.StatusOK, p)
}

// DeletePremarket handles DELETE /premarkets/{id}
func (h *Handler) DeletePremarket(w http.ResponseWriter, r *http.Request) {
	if err := h.premarkets.DeletePremarket(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyPremarkets)

	w.WriteHeader(http.StatusNoContent)
}

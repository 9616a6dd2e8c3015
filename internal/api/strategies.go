package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
)

type strategyList struct {
	Strategies []models.StrategySummary `json:"strategies"`
}

// ListStrategies handles GET /strategies
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	list, err := cached(h, r, cache.KeyStrategies, func(ctx context.Context) (strategyList, error) {
		strategies, err := h.journal.ListStrategies(ctx)
		if err != nil {
			return strategyList{}, err
		}
		out := strategyList{Strategies: make([]models.StrategySummary, 0, len(strategies))}
		for _, s := range strategies {
			out.Strategies = append(out.Strategies, s.Summary())
		}
		return out, nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// CreateStrategy handles POST /strategies and POST /addstrategy
func (h *Handler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var in journal.StrategyInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	strategy, err := h.journal.CreateStrategy(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies)

	respondJSON(w, http.StatusCreated, strategy)
}

// GetStrategy handles GET /strategies/{id}
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.journal.GetStrategy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, strategy)
}

// UpdateStrategy handles PUT /strategies/{id}
func (h *Handler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	var in journal.StrategyInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	strategy, err := h.journal.UpdateStrategy(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies)

	respondJSON(w, http.StatusOK, strategy)
}

// DeleteStrategy handles DELETE /strategies/{id}
func (h *Handler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.journal.DeleteStrategy(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies, cache.StrategyTradesKey(id))

	w.WriteHeader(http.StatusNoContent)
}

// RecomputeStrategy handles POST /strategies/{id}/recompute
func (h *Handler) RecomputeStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.journal.RecomputeStrategy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies)

	respondJSON(w, http.StatusOK, strategy)
}

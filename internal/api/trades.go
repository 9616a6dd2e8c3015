package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
)

type tradeList struct {
	Trades []*models.Trade `json:"trades"`
}

// ListStrategyTrades handles GET /strategies/{strategyId}/trades
func (h *Handler) ListStrategyTrades(w http.ResponseWriter, r *http.Request) {
	strategyID := mux.Vars(r)["strategyId"]

	list, err := cached(h, r, cache.StrategyTradesKey(strategyID), func(ctx context.Context) (tradeList, error) {
		trades, err := h.journal.ListTradesByStrategy(ctx, strategyID)
		return tradeList{Trades: trades}, err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// CreateTrade handles POST /strategies/{strategyId}/trades and POST /strategy/{strategyId}/trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	strategyID := mux.Vars(r)["strategyId"]

	var in journal.TradeInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	trade, err := h.journal.CreateTrade(r.Context(), strategyID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies, cache.StrategyTradesKey(strategyID))

	respondJSON(w, http.StatusCreated, trade)
}

// ListTrades handles GET /trades?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	start, err := dateParam(r, "startDate")
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := dateParam(r, "endDate")
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.journal.ListTradesByDateRange(r.Context(), start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetTrade handles GET /trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.journal.GetTrade(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// UpdateTrade handles PUT /trades/{id}. Fields absent from the body keep
// their stored values.
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := h.journal.GetTrade(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	in := journal.InputFromTrade(existing)
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	trade, err := h.journal.UpdateTrade(r.Context(), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies, cache.StrategyTradesKey(trade.StrategyID))

	respondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := h.journal.GetTrade(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.journal.DeleteTrade(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyStrategies, cache.StrategyTradesKey(existing.StrategyID))

	w.WriteHeader(http.StatusNoContent)
}

// PreviewTrade handles POST /trades/preview
func (h *Handler) PreviewTrade(w http.ResponseWriter, r *http.Request) {
	var in journal.TradeInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.journal.PreviewTrade(in))
}

func dateParam(r *http.Request, name string) (models.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return models.Date{}, &journal.ValidationError{Field: name, Message: "is required"}
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, &journal.ValidationError{Field: name, Message: err.Error()}
	}
	return d, nil
}

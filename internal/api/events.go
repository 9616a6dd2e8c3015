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

type eventList struct {
	Events []*models.Event `json:"events"`
}

func validateEvent(e *models.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return &journal.ValidationError{Field: "name", Message: "is required"}
	}
	if err := journal.CheckLength("name", e.Name, journal.MaxNameLength); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return &journal.ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

// ListEvents handles GET /events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := cached(h, r, cache.KeyEvents, func(ctx context.Context) (eventList, error) {
		events, err := h.events.ListEvents(ctx)
		return eventList{Events: events}, err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var e models.Event
	if err := decodeJSON(r, &e); err != nil {
		respondError(w, r, err)
		return
	}
	e.ID = ""
	if err := validateEvent(&e); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.events.CreateEvent(r.Context(), &e); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyEvents)

	respondJSON(w, http.StatusCreated, e)
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, e)
}

// UpdateEvent handles PUT /events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	e, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := decodeJSON(r, e); err != nil {
		respondError(w, r, err)
		return
	}
	e.ID = id
	if err := validateEvent(e); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.events.UpdateEvent(r.Context(), e); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyEvents)

	respondJSON(w, http.StatusOK, e)
}

// DeleteEvent handles DELETE /events/{id}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	h.invalidate(r, cache.KeyEvents)

	w.WriteHeader(http.StatusNoContent)
}

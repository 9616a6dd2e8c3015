package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/trogers1052/trade-journal/internal/auth"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/logging"
	"github.com/trogers1052/trade-journal/internal/observability"
	"github.com/trogers1052/trade-journal/internal/storage"
)

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers
type Deps struct {
	Journal      *journal.Service
	Events       storage.EventStore
	Premarkets   storage.PremarketStore
	Auth         *auth.Authenticator
	Cache        cache.Cache
	CacheTTL     time.Duration
	Metrics      *observability.Metrics
	Health       Pinger
	AuthRequired bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	journal      *journal.Service
	events       storage.EventStore
	premarkets   storage.PremarketStore
	auth         *auth.Authenticator
	cache        cache.Cache
	cacheTTL     time.Duration
	metrics      *observability.Metrics
	health       Pinger
	authRequired bool
}

// NewHandler creates a new Handler. A nil cache falls back to an in-process one.
func NewHandler(d Deps) *Handler {
	c := d.Cache
	if c == nil {
		c = cache.NewMemoryCache()
	}
	ttl := d.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Handler{
		journal:      d.Journal,
		events:       d.Events,
		premarkets:   d.Premarkets,
		auth:         d.Auth,
		cache:        c,
		cacheTTL:     ttl,
		metrics:      d.Metrics,
		health:       d.Health,
		authRequired: d.AuthRequired,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Msg("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// cached serves key from the response cache, loading it on a miss.
func cached[T any](h *Handler, r *http.Request, key string, load func(ctx context.Context) (T, error)) (T, error) {
	value, hit, err := cache.ReadThrough(r.Context(), h.cache, key, h.cacheTTL, load)
	if err == nil {
		h.metrics.RecordCacheLookup(hit)
	}
	return value, err
}

// invalidate drops cached collections after a successful mutation.
func (h *Handler) invalidate(r *http.Request, keys ...string) {
	if err := h.cache.Delete(r.Context(), keys...); err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate cache")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &journal.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

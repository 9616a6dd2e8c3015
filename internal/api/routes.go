package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(logger), handler.instrument)

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if handler.metrics != nil {
		r.Handle("/metrics", handler.metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	protect := handler.requireAuth

	// Session routes
	api.HandleFunc("/login", handler.Login).Methods("POST")
	api.HandleFunc("/logout", handler.Logout).Methods("POST")

	// Strategy routes
	api.HandleFunc("/strategies", handler.ListStrategies).Methods("GET")
	api.HandleFunc("/strategies", protect(handler.CreateStrategy)).Methods("POST")
	api.HandleFunc("/addstrategy", protect(handler.CreateStrategy)).Methods("POST")
	api.HandleFunc("/strategies/{id}", handler.GetStrategy).Methods("GET")
	api.HandleFunc("/strategies/{id}", protect(handler.UpdateStrategy)).Methods("PUT")
	api.HandleFunc("/strategies/{id}", protect(handler.DeleteStrategy)).Methods("DELETE")
	api.HandleFunc("/strategies/{id}/recompute", protect(handler.RecomputeStrategy)).Methods("POST")

	// Trade routes
	api.HandleFunc("/strategies/{strategyId}/trades", handler.ListStrategyTrades).Methods("GET")
	api.HandleFunc("/strategies/{strategyId}/trades", protect(handler.CreateTrade)).Methods("POST")
	api.HandleFunc("/strategy/{strategyId}/trades", protect(handler.CreateTrade)).Methods("POST")
	api.HandleFunc("/trades", handler.ListTrades).Methods("GET")
	api.HandleFunc("/trades/preview", handler.PreviewTrade).Methods("POST")
	api.HandleFunc("/trades/{id}", handler.GetTrade).Methods("GET")
	api.HandleFunc("/trades/{id}", protect(handler.UpdateTrade)).Methods("PUT")
	api.HandleFunc("/trades/{id}", protect(handler.DeleteTrade)).Methods("DELETE")

	// Event routes
	api.HandleFunc("/events", handler.ListEvents).Methods("GET")
	api.HandleFunc("/events", protect(handler.CreateEvent)).Methods("POST")
	api.HandleFunc("/events/{id}", handler.GetEvent).Methods("GET")
	api.HandleFunc("/events/{id}", protect(handler.UpdateEvent)).Methods("PUT")
	api.HandleFunc("/events/{id}", protect(handler.DeleteEvent)).Methods("DELETE")

	// Premarket routes
	api.HandleFunc("/premarkets", handler.ListPremarkets).Methods("GET")
	api.HandleFunc("/premarkets", protect(handler.CreatePremarket)).Methods("POST")
	api.HandleFunc("/premarkets/{id}", handler.GetPremarket).Methods("GET")
	api.HandleFunc("/premarkets/{id}", protect(handler.UpdatePremarket)).Methods("PUT")
	api.HandleFunc("/premarkets/{id}", protect(handler.DeletePremarket)).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, errorBody("route not found"))
	})

	return r
}

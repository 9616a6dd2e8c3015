package api

import (
	"errors"
	"net/http"

	"github.com/trogers1052/trade-journal/internal/auth"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/logging"
	"github.com/trogers1052/trade-journal/internal/storage"
)

// respondError maps err onto a status code and an {"error": ...} body.
// Unexpected errors are logged and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *journal.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorBody(ve.Error()))
	case errors.Is(err, storage.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, auth.ErrUnauthorized):
		respondJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	default:
		logging.FromContext(r.Context()).Error().Err(err).Msg("Request failed")
		respondJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

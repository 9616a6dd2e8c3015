package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/trogers1052/trade-journal/internal/auth"
	"github.com/trogers1052/trade-journal/internal/logging"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if h.auth == nil {
		respondJSON(w, http.StatusUnauthorized, loginResponse{Message: "login is not configured"})
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondJSON(w, http.StatusUnauthorized, loginResponse{Message: "Invalid email or password"})
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: token})
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" && h.auth != nil {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			respondError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireAuth rejects requests without a valid bearer token when
// authentication is required.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.authRequired {
			next(w, r)
			return
		}
		if h.auth == nil {
			respondError(w, r, auth.ErrUnauthorized)
			return
		}

		userID, err := h.auth.Validate(r.Context(), bearerToken(r))
		if err != nil {
			respondError(w, r, err)
			return
		}

		logger := logging.FromContext(r.Context()).With().Str("user_id", userID).Logger()
		next(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

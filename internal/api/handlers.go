// Package api serves the web authorization callback for the flickrapi tools
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexbotov/flickrapi/internal/auth"
	"github.com/alexbotov/flickrapi/internal/metrics"
	"github.com/alexbotov/flickrapi/pkg/flickr"
)

// Handler contains all HTTP handlers
type Handler struct {
	auth    *auth.Service
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a new API handler. recorder may be nil.
func New(authSvc *auth.Service, recorder *metrics.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:    authSvc,
		metrics: recorder,
		logger:  logger,
	}
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "flickrapi",
		"version":     "1.0.0",
		"description": "Flickr web authorization callback",
	})
}

// === Authorization ===

// Login handles GET /auth/login by redirecting to the Flickr consent page
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	loginURL, err := h.auth.LoginURL(flickr.Perms(r.URL.Query().Get("perms")))
	if err != nil {
		if errors.Is(err, flickr.ErrNoSecret) {
			respondError(w, http.StatusServiceUnavailable, "NO_SECRET", "API secret is not configured")
			return
		}
		h.logger.Error("login url failed", "error", err)
		respondError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Could not start login")
		return
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback handles GET /auth/callback, the URL Flickr redirects back to
// with frob and extra
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	frob := q.Get("frob")
	if frob == "" {
		respondError(w, http.StatusBadRequest, "MISSING_FROB", "frob parameter is required")
		return
	}

	token, err := h.auth.Complete(r.Context(), frob, q.Get("extra"))
	if err != nil {
		var apiErr *flickr.APIError
		switch {
		case errors.Is(err, auth.ErrInvalidState):
			respondError(w, http.StatusForbidden, "INVALID_STATE", "Login state is invalid or expired")
		case errors.As(err, &apiErr):
			respondError(w, http.StatusBadGateway, "FLICKR_ERROR", apiErr.Message)
		default:
			h.logger.Error("login completion failed", "error", err)
			respondError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Login failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nsid":     token.NSID,
		"username": token.Username,
		"perms":    token.Perms,
		"message":  "Authorization complete",
	})
}

// Session handles GET /auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	_, token, err := h.auth.Client(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthorized) {
			respondError(w, http.StatusUnauthorized, "NOT_AUTHORIZED", "No valid token stored")
			return
		}
		h.logger.Error("session lookup failed", "error", err)
		respondError(w, http.StatusBadGateway, "CHECK_FAILED", "Could not verify token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nsid":     token.NSID,
		"username": token.Username,
		"perms":    token.Perms,
	})
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "LOGOUT_FAILED", "Logout failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// Package api - Router setup
package api

import (
	"net/http"

	"github.com/alexbotov/flickrapi/internal/logging"
	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(logging.RequestLogger(h.logger))

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}

	// Authorization
	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/login", h.Login).Methods("GET")
	authRoutes.HandleFunc("/callback", h.Callback).Methods("GET")
	authRoutes.HandleFunc("/session", h.Session).Methods("GET")
	authRoutes.HandleFunc("/logout", h.Logout).Methods("POST")

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

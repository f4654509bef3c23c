// ABOUTME: HTTP server wiring for the nestbox API surface
// ABOUTME: Mounts register/login, the public posts view, and the authenticated resource routes

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/2389/nestbox/internal/auth"
	"github.com/2389/nestbox/internal/dispatch"
	"github.com/2389/nestbox/internal/registry"
	"github.com/2389/nestbox/internal/store"
)

// Server holds the API's collaborators and exposes the HTTP handler.
type Server struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	authority  *auth.Authority
	logger     *slog.Logger
}

// NewServer creates an API server over the given store and token authority.
func NewServer(st store.Store, authority *auth.Authority) *Server {
	return &Server{
		store:      st,
		dispatcher: dispatch.New(st),
		authority:  authority,
		logger:     slog.Default().With("component", "api"),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /posts", s.handleAllPosts)

	authed := auth.Middleware(s.authority)
	mux.Handle("/users/", authed(http.HandlerFunc(s.handleResource)))

	return mux
}

// errorResponse is the error envelope for every failed request. The
// redirectToLogin flag is present only for authentication failures; ownership
// and not-found failures never carry it.
type errorResponse struct {
	Error           string `json:"error"`
	RedirectToLogin bool   `json:"redirectToLogin,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// writeError writes the error envelope without the redirect flag.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeDispatchError translates dispatcher and registry failures into the
// error taxonomy. Anything unexpected is downgraded to a 500 and logged with
// full context rather than crashing the handler or leaking storage detail.
func (s *Server) writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownKind):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrMissingSubitemID):
		s.writeError(w, http.StatusBadRequest, "Missing subitem ID")
	case errors.Is(err, dispatch.ErrMissingID):
		s.writeError(w, http.StatusBadRequest, "Missing resource ID")
	case errors.Is(err, dispatch.ErrMissingField):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, dispatch.ErrForbidden):
		s.writeError(w, http.StatusForbidden, "Forbidden: Not owner")
	case errors.Is(err, dispatch.ErrSubitemMismatch):
		s.writeError(w, http.StatusForbidden, "Subitem does not belong to this parent")
	default:
		s.logger.Error("resource operation failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody decodes a JSON request body into dst. An unreadable or
// syntactically invalid body is a client error.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// ABOUTME: Authenticated resource routes under /users/{ownerId}/{type}[/{id}[/{subtype}[/{subId}]]]
// ABOUTME: Parses the path descriptor, enforces the token/path identity match, and dispatches

package api

import (
	"net/http"
	"strings"

	"github.com/2389/nestbox/internal/auth"
	"github.com/2389/nestbox/internal/dispatch"
)

// parsePath splits a /users/... URL into a path descriptor. Returns false for
// structurally impossible paths (too few or too many segments).
func parsePath(urlPath string) (dispatch.Path, bool) {
	trimmed := strings.Trim(strings.TrimPrefix(urlPath, "/users/"), "/")
	if trimmed == "" {
		return dispatch.Path{}, false
	}

	segs := strings.Split(trimmed, "/")
	if len(segs) < 2 || len(segs) > 5 {
		return dispatch.Path{}, false
	}

	p := dispatch.Path{OwnerID: segs[0], Type: segs[1]}
	if len(segs) > 2 {
		p.ID = segs[2]
	}
	if len(segs) > 3 {
		p.Subtype = segs[3]
	}
	if len(segs) > 4 {
		p.SubID = segs[4]
	}
	return p, true
}

// handleResource serves every authenticated resource route. The token's
// identity must match the path's owner before any resource is touched; a
// mismatch protects the route itself, independent of per-record ownership.
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(r.URL.Path)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}

	callerID := auth.MustFromContext(r.Context())
	if callerID != p.OwnerID {
		s.logger.Warn("user ID mismatch", "token_user", callerID, "path_user", p.OwnerID)
		s.writeError(w, http.StatusForbidden, "Access denied: user ID mismatch")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleResourceGet(w, r, p)
	case http.MethodPost:
		s.handleResourceCreate(w, r, p)
	case http.MethodPut:
		s.handleResourceUpdate(w, r, p)
	case http.MethodDelete:
		s.handleResourceDelete(w, r, p)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleResourceGet lists a collection (/type or /type/{id}/subtype) or
// fetches a single record (/type/{id}).
func (s *Server) handleResourceGet(w http.ResponseWriter, r *http.Request, p dispatch.Path) {
	if p.ID != "" && p.Subtype == "" {
		item, err := s.dispatcher.Get(r.Context(), p)
		if err != nil {
			s.writeDispatchError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, item)
		return
	}

	if p.SubID != "" {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}

	items, err := s.dispatcher.List(r.Context(), p)
	if err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(items))
}

// handleResourceCreate creates a top-level record or a subitem under a parent.
func (s *Server) handleResourceCreate(w http.ResponseWriter, r *http.Request, p dispatch.Path) {
	// POST targets a collection, never an individual record
	if (p.Subtype == "" && p.ID != "") || p.SubID != "" {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var fields map[string]any
	if !s.decodeBody(w, r, &fields) {
		return
	}

	item, err := s.dispatcher.Create(r.Context(), p, fields)
	if err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

// handleResourceUpdate merge-applies the body onto a record or subitem. The
// dispatcher reports a missing target itself, after the ownership chain has
// been checked, so there is no ID pre-check here.
func (s *Server) handleResourceUpdate(w http.ResponseWriter, r *http.Request, p dispatch.Path) {
	var fields map[string]any
	if !s.decodeBody(w, r, &fields) {
		return
	}

	item, err := s.dispatcher.Update(r.Context(), p, fields)
	if err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

// handleResourceDelete deletes a record (cascading) or a subitem.
func (s *Server) handleResourceDelete(w http.ResponseWriter, r *http.Request, p dispatch.Path) {
	if err := s.dispatcher.Delete(r.Context(), p); err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}

// nonNil turns a nil slice into an empty one so collections encode as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

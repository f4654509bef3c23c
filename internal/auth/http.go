// ABOUTME: HTTP middleware for bearer-token authentication on API endpoints
// ABOUTME: Extracts the JWT from the Authorization header and adds the identity to context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing or invalid token"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeAuthFailure writes the 401 envelope. Every authentication failure
// carries the redirectToLogin flag: whether the token is expired or forged,
// the caller's only recovery is to discard its session and log in again.
func writeAuthFailure(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":           message,
		"redirectToLogin": true,
	})
}

// Middleware creates an HTTP middleware that verifies bearer tokens and adds
// the authenticated user ID to the request context. Path-owner matching is
// the resource handler's job; this layer only establishes who is calling.
func Middleware(authority *Authority) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAuthFailure(w, errMsg)
				return
			}

			userID, err := authority.Verify(token)
			if err != nil {
				logger.Warn("token verification failed", "error", err)
				if errors.Is(err, ErrExpiredToken) {
					writeAuthFailure(w, "Your session has expired. Please login again.")
					return
				}
				writeAuthFailure(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID)))
		})
	}
}

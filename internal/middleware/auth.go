// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for user data.
const (
	ContextKeyUser ContextKey = "user"
)

// Session keys for storing user data.
const (
	SessionKeyUserID = "user_id"
)

// jsonError writes the API error envelope. The same shape the handler
// package emits, duplicated here to avoid an import cycle.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

// LoadUser creates middleware that resolves the session to a user row and
// stores it in the request context. Requests without a session, or whose
// session points at a deleted user, pass through without a user; the
// gates below decide what that means per route.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					slog.Error("loading session user", "user_id", userID, "error", err)
				}
				// Session references a user that no longer exists.
				// Keep the session id in context so RequireMember can
				// distinguish "stale session" from "no session".
				ctx := context.WithValue(r.Context(), ContextKeyUser, staleSession{})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// staleSession marks a session whose user row has been removed.
type staleSession struct{}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or nil if not found.
// Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// GetActor returns the acting user as an audit-friendly value, or nil.
func GetActor(r *http.Request) *model.Actor {
	user := GetUser(r)
	if user == nil {
		return nil
	}
	return &model.Actor{UserID: user.ID, Email: user.Email, Role: user.Role}
}

// hasStaleSession reports whether LoadUser found a session pointing at a
// missing user row.
func hasStaleSession(r *http.Request) bool {
	_, ok := r.Context().Value(ContextKeyUser).(staleSession)
	return ok
}

// RequireMember creates middleware that requires a signed-in club member.
// Must run after LoadUser. Anonymous requests get 401; a session whose
// user row has been removed gets 404 and its session destroyed.
func RequireMember(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasStaleSession(r) {
				_ = sm.Destroy(r.Context())
				jsonError(w, http.StatusNotFound, "Not a recognized member")
				return
			}
			if GetUser(r) == nil {
				jsonError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that requires an admin member.
// Must run after RequireMember. Non-admin members get 403.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireAdminWithEventLog(nil)
}

// RequireAdminWithEventLog creates middleware that requires an admin member
// and records denied attempts in the event log.
func RequireAdminWithEventLog(eventService *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				jsonError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !user.IsAdmin() {
				slog.Warn("admin access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"remote_addr", r.RemoteAddr,
				)

				if eventService != nil {
					userID := user.ID
					_ = eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
						"Access denied: admin required", &userID, r.RemoteAddr,
						map[string]any{
							"method": r.Method,
							"path":   r.URL.Path,
							"role":   user.Role,
						})
				}

				jsonError(w, http.StatusForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

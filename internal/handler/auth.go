// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/clubportal-go/internal/auth"
	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/store"
)

// AuthHandler handles login, logout and the session probe.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// loginRequest is the POST /login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /login. Failed attempts count toward the account
// lockout; the session token is renewed on success to prevent fixation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			writeJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Account temporarily locked. Try again in %s.", remaining.Round(time.Second)))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("looking up login email", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		h.recordFailure(r, email, nil)
		writeJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		h.recordFailure(r, email, &user.ID)
		writeJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	// Transparent parameter upgrade for hashes created under old settings.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			_ = h.queries.UpdateUserPassword(r.Context(), user.ID, newHash)
		}
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("renewing session token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	_ = h.queries.TouchLastLogin(r.Context(), user.ID)
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "login",
		&user.ID, r.RemoteAddr, nil)

	writeData(w, http.StatusOK, userPayload(user))
}

// Logout handles POST /logout. Destroying an absent session is fine.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDPtr(r)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("destroying session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	if userID != nil {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "logout",
			userID, r.RemoteAddr, nil)
	}
	writeJSONSuccess(w, http.StatusOK, nil)
}

// Me handles GET /me: reports the signed-in user, or 401.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeData(w, http.StatusOK, userPayload(*user))
}

func (h *AuthHandler) recordFailure(r *http.Request, email string, userID *int64) {
	meta := map[string]any{"email": email}
	if h.loginProtection != nil {
		if locked, d := h.loginProtection.RecordFailedAttempt(email); locked {
			meta["locked_for"] = d.String()
		}
	}
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
		"failed login", userID, r.RemoteAddr, meta)
}

// userPayload is the user shape returned by auth and portal endpoints.
// The password hash never leaves the store layer.
func userPayload(user model.User) map[string]any {
	return map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"role":      user.Role,
		"grad_year": user.GradYear,
	}
}

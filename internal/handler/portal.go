// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/clubportal-go/internal/auth"
	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/store"
)

// PortalHandler serves the member portal: directory, resources, settings
// and the ingested news feed. Every route requires a signed-in member.
type PortalHandler struct {
	queries *store.Queries
	feed    *service.FeedService
	events  *service.EventService
}

// NewPortalHandler creates a new portal handler.
func NewPortalHandler(db *sql.DB, feed *service.FeedService) *PortalHandler {
	return &PortalHandler{
		queries: store.New(db),
		feed:    feed,
		events:  service.NewEventService(db),
	}
}

// Directory handles GET /portal/directory: all members, admins included.
func (h *PortalHandler) Directory(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load directory")
		return
	}

	members := make([]map[string]any, 0, len(users))
	for _, u := range users {
		members = append(members, userPayload(u))
	}
	writeData(w, http.StatusOK, members)
}

// resourceSection groups the resources of one tab section.
type resourceSection struct {
	Section   string           `json:"section"`
	Resources []model.Resource `json:"resources"`
}

// resourceTab groups the sections of one tab.
type resourceTab struct {
	TabID    string            `json:"tab_id"`
	Sections []resourceSection `json:"sections"`
}

// Resources handles GET /portal/resources: resources grouped by tab and
// section, in display order.
func (h *PortalHandler) Resources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.queries.ListResources(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load resources")
		return
	}

	// ListResources orders by tab, section, sort order, so grouping is a
	// single pass.
	var tabs []resourceTab
	for _, res := range resources {
		if len(tabs) == 0 || tabs[len(tabs)-1].TabID != res.TabID {
			tabs = append(tabs, resourceTab{TabID: res.TabID})
		}
		tab := &tabs[len(tabs)-1]
		if len(tab.Sections) == 0 || tab.Sections[len(tab.Sections)-1].Section != res.Section {
			tab.Sections = append(tab.Sections, resourceSection{Section: res.Section})
		}
		section := &tab.Sections[len(tab.Sections)-1]
		section.Resources = append(section.Resources, res)
	}

	writeData(w, http.StatusOK, tabs)
}

// settingsRequest is the PUT /portal/settings body. Empty fields are left
// unchanged; changing the password requires the current one.
type settingsRequest struct {
	Name            string `json:"name"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// minPasswordLength is the shortest accepted new password.
const minPasswordLength = 8

// Settings handles PUT /portal/settings: members update their own name
// and password.
func (h *PortalHandler) Settings(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" && req.NewPassword == "" {
		writeJSONError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}

	if req.NewPassword != "" {
		if len(req.NewPassword) < minPasswordLength {
			writeJSONError(w, http.StatusBadRequest,
				"New password must be at least "+strconv.Itoa(minPasswordLength)+" characters")
			return
		}
		ok, err := auth.CheckPassword(req.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			writeJSONError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			slog.Error("hashing new password", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}
		if err := h.queries.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "password changed",
			&user.ID, r.RemoteAddr, nil)
	}

	if name != "" && name != user.Name {
		if err := h.queries.UpdateUserName(r.Context(), user.ID, name); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}
	}

	updated, err := h.queries.GetUserByID(r.Context(), user.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load updated settings")
		return
	}
	writeData(w, http.StatusOK, userPayload(updated))
}

// defaultNewsLimit caps GET /portal/news when no limit is given.
const defaultNewsLimit = 20

// News handles GET /portal/news: ingested feed items, newest first.
func (h *PortalHandler) News(w http.ResponseWriter, r *http.Request) {
	// No feed source configured: the page is just empty.
	if h.feed == nil {
		writeData(w, http.StatusOK, []model.FeedItem{})
		return
	}

	limit := int64(defaultNewsLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 100 {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	items, err := h.feed.LatestItems(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load news")
		return
	}
	if items == nil {
		items = []model.FeedItem{}
	}
	writeData(w, http.StatusOK, items)
}

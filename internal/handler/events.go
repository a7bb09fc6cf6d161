// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
)

// Event log pagination bounds.
const (
	defaultEventsPerPage = 50
	maxEventsPerPage     = 200
)

// EventsHandler exposes the event log to admins.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(db *sql.DB) *EventsHandler {
	return &EventsHandler{events: service.NewEventService(db)}
}

// List handles GET /admin/events?page=N&per_page=M, newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", defaultEventsPerPage)
	if page < 1 {
		writeJSONError(w, http.StatusBadRequest, "page must be at least 1")
		return
	}
	if perPage < 1 || perPage > maxEventsPerPage {
		writeJSONError(w, http.StatusBadRequest,
			"per_page must be between 1 and "+strconv.Itoa(maxEventsPerPage))
		return
	}

	events, err := h.events.List(r.Context(), int64(perPage), int64(page-1)*int64(perPage))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	total, err := h.events.Count(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	writeJSONSuccess(w, http.StatusOK, map[string]any{
		"data":     events,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}

// queryInt parses an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/store"
)

// ContentHandler implements the admin CRUD pipeline for one content kind:
// validate against the kind's field schema, mutate the store, mark the
// derived public pages stale, respond. The per-kind differences (table
// access, invalidation sub-key) are injected by the kind's constructor.
type ContentHandler struct {
	kind        model.Kind
	label       string
	db          *sql.DB
	queries     *store.Queries
	invalidator cache.Invalidator
	events      *service.EventService

	listFn   func(ctx context.Context, q *store.Queries) (any, error)
	insertFn func(ctx context.Context, q *store.Queries, fields map[string]any) (any, error)
	getFn    func(ctx context.Context, q *store.Queries, id string) (any, error)

	// subKeyField names the payload field that narrows invalidation
	// ("group_slug" for people, "type" for sponsors). Empty means every
	// mutation invalidates the whole kind. subKeyOf extracts the same
	// value from a fetched row.
	subKeyField string
	subKeyOf    func(item any) string

	// normalize, when set, canonicalizes masked fields before validation
	// and persistence. validate, when set, checks kind-specific value
	// constraints the schema cannot express, such as the sponsor type
	// enum; it runs on whatever fields the request supplied.
	normalize func(fields map[string]any)
	validate  func(fields map[string]any) map[string]string
}

// List handles GET /cms/{kind}.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.listFn(r.Context(), h.queries)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load "+strings.ToLower(h.label)+" items")
		return
	}
	writeData(w, http.StatusOK, items)
}

// Create handles POST /cms/{kind}.
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	schema := model.SchemaFor(h.kind)
	fields, fieldErrs := schema.Mask(payload)
	if fieldErrs == nil {
		if h.normalize != nil {
			h.normalize(fields)
		}
		fieldErrs = schema.ValidateRequired(fields)
	}
	if fieldErrs == nil && h.validate != nil {
		fieldErrs = h.validate(fields)
	}
	if fieldErrs != nil {
		writeJSONError(w, http.StatusBadRequest, fieldErrorMessage(fieldErrs))
		return
	}

	item, err := h.insertFn(r.Context(), h.queries, fields)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to create "+strings.ToLower(h.label))
		return
	}

	h.invalidate(r.Context(), h.createScope(fields))
	h.logMutation(r, "created")
	writeData(w, http.StatusCreated, item)
}

// Update handles PUT /cms/{kind}/{id}. Only schema fields present in the
// payload are written; an update that masks down to nothing is rejected
// before any store call so no-op writes never trigger invalidation.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields, fieldErrs := model.SchemaFor(h.kind).Mask(payload)
	if fieldErrs != nil {
		writeJSONError(w, http.StatusBadRequest, fieldErrorMessage(fieldErrs))
		return
	}
	if len(fields) == 0 {
		writeJSONError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}
	if h.normalize != nil {
		h.normalize(fields)
	}
	if h.validate != nil {
		if errs := h.validate(fields); errs != nil {
			writeJSONError(w, http.StatusBadRequest, fieldErrorMessage(errs))
			return
		}
	}

	scope, err := h.updateScope(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "Failed to update "+strings.ToLower(h.label))
		return
	}

	rows, err := h.queries.UpdateContent(r.Context(), h.kind, id, fields)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to update "+strings.ToLower(h.label))
		return
	}
	if rows == 0 {
		writeJSONError(w, http.StatusNotFound, h.label+" not found")
		return
	}

	item, err := h.getFn(r.Context(), h.queries, id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load updated "+strings.ToLower(h.label))
		return
	}

	h.invalidate(r.Context(), scope)
	h.logMutation(r, "updated")
	writeData(w, http.StatusOK, item)
}

// Delete handles DELETE /cms/{kind}/{id}. Deleting a missing id succeeds;
// the operation is idempotent by design.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.queries.DeleteContent(r.Context(), h.kind, id); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete "+strings.ToLower(h.label))
		return
	}

	// The deleted row's sub-key is gone, so the scope is ambiguous.
	// Correctness over cache efficiency: invalidate the whole kind.
	h.invalidate(r.Context(), cache.AllOfKind(h.kind))
	h.logMutation(r, "deleted")
	writeData(w, http.StatusOK, map[string]any{"id": id})
}

// reorderItem is one entry of a reorder batch after validation.
type reorderItem struct {
	ID        string
	SortOrder int64
}

// Reorder handles POST /cms/{kind}/reorder. The whole batch is validated
// before any write, then applied inside one transaction: either every row
// gets its new sort order or none does.
func (h *ContentHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload.Items) == 0 {
		writeJSONError(w, http.StatusBadRequest, "items must be a non-empty list")
		return
	}

	items := make([]reorderItem, 0, len(payload.Items))
	for i, raw := range payload.Items {
		id, ok := raw["id"].(string)
		if !ok || strings.TrimSpace(id) == "" {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("item %d: id must be a non-empty string", i))
			return
		}
		order, ok := raw["sort_order"].(float64)
		if !ok {
			// Accept the camelCase alias some admin clients send.
			if order, ok = raw["sortOrder"].(float64); !ok {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("item %d: sort_order must be a number", i))
				return
			}
		}
		items = append(items, reorderItem{ID: id, SortOrder: int64(order)})
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to reorder")
		return
	}
	defer func() { _ = tx.Rollback() }()

	qtx := h.queries.WithTx(tx)
	for _, item := range items {
		rows, err := qtx.UpdateSortOrder(r.Context(), h.kind, item.ID, item.SortOrder)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Failed to reorder")
			return
		}
		if rows == 0 {
			writeJSONError(w, http.StatusNotFound, h.label+" "+item.ID+" not found")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to reorder")
		return
	}

	// A batch may span many groups; invalidate the whole kind.
	h.invalidate(r.Context(), cache.AllOfKind(h.kind))
	h.logMutation(r, "reordered")
	writeData(w, http.StatusOK, map[string]any{"updated": len(items)})
}

// createScope narrows invalidation to the created row's sub-collection
// when the kind has one. The sub-key field is required on create, so it
// is always present in the masked set.
func (h *ContentHandler) createScope(fields map[string]any) cache.Scope {
	if h.subKeyField == "" {
		return cache.AllOfKind(h.kind)
	}
	if sub, ok := fields[h.subKeyField].(string); ok && sub != "" {
		return cache.GroupOfKind(h.kind, sub)
	}
	return cache.AllOfKind(h.kind)
}

// updateScope resolves the invalidation scope for an update. Moving a row
// between sub-collections makes the scope ambiguous, so that case falls
// back to the whole kind. Returns sql.ErrNoRows when the id is unknown.
func (h *ContentHandler) updateScope(ctx context.Context, id string, fields map[string]any) (cache.Scope, error) {
	if h.subKeyField == "" {
		return cache.AllOfKind(h.kind), nil
	}

	current, err := h.getFn(ctx, h.queries, id)
	if err != nil {
		return cache.Scope{}, err
	}
	oldKey := h.subKeyOf(current)

	if newKey, ok := fields[h.subKeyField].(string); ok && newKey != oldKey {
		return cache.AllOfKind(h.kind), nil
	}
	return cache.GroupOfKind(h.kind, oldKey), nil
}

func (h *ContentHandler) invalidate(ctx context.Context, scope cache.Scope) {
	if h.invalidator != nil {
		h.invalidator.MarkStale(ctx, scope)
	}
}

func (h *ContentHandler) logMutation(r *http.Request, verb string) {
	if h.events == nil {
		return
	}
	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo,
		strings.ToLower(h.label)+" "+verb,
		middleware.GetUserIDPtr(r), r.RemoteAddr, nil)
}

// fieldErrorMessage flattens per-field validation errors into one stable,
// human-readable message.
func fieldErrorMessage(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+errs[key])
	}
	return strings.Join(parts, "; ")
}

// fieldStr reads a masked text field, defaulting to empty.
func fieldStr(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// fieldInt reads a masked numeric field, defaulting to zero.
func fieldInt(fields map[string]any, key string) int64 {
	n, _ := fields[key].(int64)
	return n
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/store"
)

// NewResourcesHandler binds the CRUD pipeline to the resources table.
// Resource pages are keyed per tab, so mutations purge the whole
// resources prefix.
func NewResourcesHandler(db *sql.DB, inv cache.Invalidator, events *service.EventService) *ContentHandler {
	return &ContentHandler{
		kind:        model.KindResource,
		label:       "Resource",
		db:          db,
		queries:     store.New(db),
		invalidator: inv,
		events:      events,

		listFn: func(ctx context.Context, q *store.Queries) (any, error) {
			resources, err := q.ListResources(ctx)
			if resources == nil {
				resources = []model.Resource{}
			}
			return resources, err
		},
		getFn: func(ctx context.Context, q *store.Queries, id string) (any, error) {
			return q.GetResourceByID(ctx, id)
		},
		insertFn: func(ctx context.Context, q *store.Queries, f map[string]any) (any, error) {
			now := time.Now()
			return q.CreateResource(ctx, store.CreateResourceParams{
				ID:          uuid.NewString(),
				Title:       fieldStr(f, "title"),
				Description: fieldStr(f, "description"),
				URL:         fieldStr(f, "url"),
				LinkURL:     fieldStr(f, "link_url"),
				Type:        fieldStr(f, "type"),
				TabID:       fieldStr(f, "tab_id"),
				Section:     fieldStr(f, "section"),
				SortOrder:   fieldInt(f, "sort_order"),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		},
	}
}

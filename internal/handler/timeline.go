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

// NewTimelineHandler binds the CRUD pipeline to the timeline table. All
// timeline events render on one page, so every mutation invalidates it.
func NewTimelineHandler(db *sql.DB, inv cache.Invalidator, events *service.EventService) *ContentHandler {
	return &ContentHandler{
		kind:        model.KindTimeline,
		label:       "Timeline event",
		db:          db,
		queries:     store.New(db),
		invalidator: inv,
		events:      events,

		listFn: func(ctx context.Context, q *store.Queries) (any, error) {
			items, err := q.ListTimelineEvents(ctx)
			if items == nil {
				items = []model.TimelineEvent{}
			}
			return items, err
		},
		getFn: func(ctx context.Context, q *store.Queries, id string) (any, error) {
			return q.GetTimelineEventByID(ctx, id)
		},
		insertFn: func(ctx context.Context, q *store.Queries, f map[string]any) (any, error) {
			now := time.Now()
			return q.CreateTimelineEvent(ctx, store.CreateTimelineEventParams{
				ID:          uuid.NewString(),
				Title:       fieldStr(f, "title"),
				Description: fieldStr(f, "description"),
				EventDate:   fieldStr(f, "event_date"),
				SortOrder:   fieldInt(f, "sort_order"),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		},
	}
}

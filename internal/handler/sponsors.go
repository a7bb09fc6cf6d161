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

// NewSponsorsHandler binds the CRUD pipeline to the sponsors table. The
// sponsor type (sponsor or partner) picks which public page goes stale.
func NewSponsorsHandler(db *sql.DB, inv cache.Invalidator, events *service.EventService) *ContentHandler {
	return &ContentHandler{
		kind:        model.KindSponsor,
		label:       "Sponsor",
		db:          db,
		queries:     store.New(db),
		invalidator: inv,
		events:      events,
		subKeyField: "type",

		validate: func(fields map[string]any) map[string]string {
			t, ok := fields["type"].(string)
			if ok && t != model.SponsorTypeSponsor && t != model.SponsorTypePartner {
				return map[string]string{"type": `must be "sponsor" or "partner"`}
			}
			return nil
		},

		listFn: func(ctx context.Context, q *store.Queries) (any, error) {
			sponsors, err := q.ListSponsors(ctx)
			if sponsors == nil {
				sponsors = []model.Sponsor{}
			}
			return sponsors, err
		},
		getFn: func(ctx context.Context, q *store.Queries, id string) (any, error) {
			return q.GetSponsorByID(ctx, id)
		},
		insertFn: func(ctx context.Context, q *store.Queries, f map[string]any) (any, error) {
			now := time.Now()
			return q.CreateSponsor(ctx, store.CreateSponsorParams{
				ID:          uuid.NewString(),
				Type:        fieldStr(f, "type"),
				Name:        fieldStr(f, "name"),
				DisplayName: fieldStr(f, "display_name"),
				Website:     fieldStr(f, "website"),
				ImagePath:   fieldStr(f, "image_path"),
				Description: fieldStr(f, "description"),
				SortOrder:   fieldInt(f, "sort_order"),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		},
		subKeyOf: func(item any) string {
			return item.(model.Sponsor).Type
		},
	}
}

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
	"github.com/olegiv/clubportal-go/internal/util"
)

// NewPeopleHandler binds the CRUD pipeline to the people tables. A
// person's group slug scopes invalidation to that group's page; slugs
// are canonicalized so "Board Members" and "board-members" address the
// same group.
func NewPeopleHandler(db *sql.DB, inv cache.Invalidator, events *service.EventService) *ContentHandler {
	return &ContentHandler{
		kind:        model.KindPerson,
		label:       "Person",
		db:          db,
		queries:     store.New(db),
		invalidator: inv,
		events:      events,
		subKeyField: "group_slug",

		normalize: func(fields map[string]any) {
			if raw, ok := fields["group_slug"].(string); ok && !util.IsValidSlug(raw) {
				fields["group_slug"] = util.Slugify(raw)
			}
		},

		listFn: func(ctx context.Context, q *store.Queries) (any, error) {
			people, err := q.ListPeople(ctx)
			if people == nil {
				people = []model.Person{}
			}
			return people, err
		},
		getFn: func(ctx context.Context, q *store.Queries, id string) (any, error) {
			return q.GetPersonByID(ctx, id)
		},
		insertFn: func(ctx context.Context, q *store.Queries, f map[string]any) (any, error) {
			now := time.Now()
			return q.CreatePerson(ctx, store.CreatePersonParams{
				ID:          uuid.NewString(),
				GroupSlug:   fieldStr(f, "group_slug"),
				Name:        fieldStr(f, "name"),
				Title:       fieldStr(f, "title"),
				School:      fieldStr(f, "school"),
				Company:     fieldStr(f, "company"),
				Linkedin:    fieldStr(f, "linkedin"),
				HeadshotURL: fieldStr(f, "headshot_url"),
				SortOrder:   fieldInt(f, "sort_order"),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		},
		subKeyOf: func(item any) string {
			return item.(model.Person).GroupSlug
		},
	}
}

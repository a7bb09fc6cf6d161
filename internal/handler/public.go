// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/store"
)

// htmlSanitizer strips dangerous markup from rendered descriptions.
// UGCPolicy keeps the safe subset appropriate for admin-entered markdown.
var htmlSanitizer = bluemonday.UGCPolicy()

// PublicHandler serves the unauthenticated read endpoints the marketing
// pages are built from. Responses are cached whole under page:{path}
// keys; the invalidation dispatcher purges them after CMS mutations.
type PublicHandler struct {
	queries *store.Queries
	cache   cache.Cacher
	ttl     time.Duration
}

// NewPublicHandler creates a new public handler. A nil cache disables
// response caching.
func NewPublicHandler(db *sql.DB, c cache.Cacher, ttl time.Duration) *PublicHandler {
	return &PublicHandler{
		queries: store.New(db),
		cache:   c,
		ttl:     ttl,
	}
}

// People handles GET /people/{groupSlug}: one group, display order.
func (h *PublicHandler) People(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "groupSlug")
	h.serveCached(w, r, "/people/"+group, func(ctx context.Context) (any, error) {
		people, err := h.queries.ListPeopleByGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		if people == nil {
			people = []model.Person{}
		}
		return people, nil
	})
}

// Sponsors handles GET /sponsors.
func (h *PublicHandler) Sponsors(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "/sponsors", func(ctx context.Context) (any, error) {
		return h.listSponsorsByType(ctx, model.SponsorTypeSponsor)
	})
}

// Partners handles GET /partners.
func (h *PublicHandler) Partners(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "/partners", func(ctx context.Context) (any, error) {
		return h.listSponsorsByType(ctx, model.SponsorTypePartner)
	})
}

func (h *PublicHandler) listSponsorsByType(ctx context.Context, sponsorType string) (any, error) {
	sponsors, err := h.queries.ListSponsorsByType(ctx, sponsorType)
	if err != nil {
		return nil, err
	}
	out := make([]publicSponsor, 0, len(sponsors))
	for _, s := range sponsors {
		out = append(out, publicSponsor{
			Sponsor:         s,
			DescriptionHTML: renderMarkdown(s.Description),
		})
	}
	return out, nil
}

// publicSponsor decorates a sponsor with its rendered description.
type publicSponsor struct {
	model.Sponsor
	DescriptionHTML string `json:"description_html,omitempty"`
}

// publicTimelineEvent decorates a timeline event with its rendered
// description.
type publicTimelineEvent struct {
	model.TimelineEvent
	DescriptionHTML string `json:"description_html,omitempty"`
}

// Timeline handles GET /timeline.
func (h *PublicHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "/timeline", func(ctx context.Context) (any, error) {
		events, err := h.queries.ListTimelineEvents(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]publicTimelineEvent, 0, len(events))
		for _, e := range events {
			out = append(out, publicTimelineEvent{
				TimelineEvent:   e,
				DescriptionHTML: renderMarkdown(e.Description),
			})
		}
		return out, nil
	})
}

// publicResource decorates a resource with its rendered description.
type publicResource struct {
	model.Resource
	DescriptionHTML string `json:"description_html,omitempty"`
}

// publicResourceSection groups public resources within a tab.
type publicResourceSection struct {
	Section   string           `json:"section"`
	Resources []publicResource `json:"resources"`
}

// publicResourceTab groups public resource sections.
type publicResourceTab struct {
	TabID    string                  `json:"tab_id"`
	Sections []publicResourceSection `json:"sections"`
}

// Resources handles GET /resources: resources grouped by tab and section.
func (h *PublicHandler) Resources(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "/resources", func(ctx context.Context) (any, error) {
		resources, err := h.queries.ListResources(ctx)
		if err != nil {
			return nil, err
		}

		var tabs []publicResourceTab
		for _, res := range resources {
			if len(tabs) == 0 || tabs[len(tabs)-1].TabID != res.TabID {
				tabs = append(tabs, publicResourceTab{TabID: res.TabID})
			}
			tab := &tabs[len(tabs)-1]
			if len(tab.Sections) == 0 || tab.Sections[len(tab.Sections)-1].Section != res.Section {
				tab.Sections = append(tab.Sections, publicResourceSection{Section: res.Section})
			}
			section := &tab.Sections[len(tab.Sections)-1]
			section.Resources = append(section.Resources, publicResource{
				Resource:        res,
				DescriptionHTML: renderMarkdown(res.Description),
			})
		}
		if tabs == nil {
			tabs = []publicResourceTab{}
		}
		return tabs, nil
	})
}

// serveCached serves the page:{path} cache entry when present, otherwise
// builds the response, stores it and serves it. Cache failures degrade to
// an uncached response.
func (h *PublicHandler) serveCached(w http.ResponseWriter, r *http.Request, path string, build func(ctx context.Context) (any, error)) {
	key := cache.PageKey(path)

	if h.cache != nil {
		if body, err := h.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
	}

	data, err := build(r.Context())
	if err != nil {
		slog.Error("building public page", "path", path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load page")
		return
	}

	body, err := json.Marshal(map[string]any{"success": true, "data": data})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load page")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, body, h.ttl); err != nil {
			slog.Warn("caching public page", "path", path, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// renderMarkdown converts admin-entered markdown to sanitized HTML.
// Empty input renders to empty output, not an empty paragraph.
func renderMarkdown(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return string(htmlSanitizer.SanitizeBytes(buf.Bytes()))
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/store"
)

// Feed fetch limits.
const (
	feedFetchTimeout = 30 * time.Second
	feedMaxBodySize  = 5 * 1024 * 1024
	feedMaxItems     = 100
)

// FeedService ingests an external RSS feed into the feed_items table so
// the member portal can show market news without calling out on every
// request.
type FeedService struct {
	queries *store.Queries
	events  *EventService
	client  *http.Client
	feedURL string
}

// NewFeedService creates a new feed service for the given RSS URL.
func NewFeedService(db *sql.DB, feedURL string, events *EventService) *FeedService {
	return &FeedService{
		queries: store.New(db),
		events:  events,
		client:  &http.Client{Timeout: feedFetchTimeout},
		feedURL: feedURL,
	}
}

// rssEnvelope mirrors the subset of RSS 2.0 we consume.
type rssEnvelope struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Refresh fetches the feed and upserts its items by GUID. Items without
// a GUID fall back to the link. Returns the number of items stored.
func (s *FeedService) Refresh(ctx context.Context) (int, error) {
	if s.feedURL == "" {
		return 0, errors.New("no feed URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", "clubportal-feed/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logFailure(ctx, "feed fetch failed", err)
		return 0, fmt.Errorf("fetching feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("feed returned status %d", resp.StatusCode)
		s.logFailure(ctx, "feed fetch failed", err)
		return 0, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, feedMaxBodySize))
	if err != nil {
		return 0, fmt.Errorf("reading feed body: %w", err)
	}

	var envelope rssEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		s.logFailure(ctx, "feed parse failed", err)
		return 0, fmt.Errorf("parsing feed: %w", err)
	}

	now := time.Now()
	stored := 0
	for i, item := range envelope.Channel.Items {
		if i >= feedMaxItems {
			break
		}

		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" || item.Title == "" {
			continue
		}

		err := s.queries.UpsertFeedItem(ctx, store.UpsertFeedItemParams{
			GUID:        guid,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PublishedAt: parsePubDate(item.PubDate, now),
			FetchedAt:   now,
		})
		if err != nil {
			return stored, fmt.Errorf("storing feed item %s: %w", guid, err)
		}
		stored++
	}

	if s.events != nil {
		_ = s.events.LogFeedEvent(ctx, model.EventLevelInfo, "feed refreshed",
			map[string]any{"items": stored, "channel": envelope.Channel.Title})
	}

	return stored, nil
}

// LatestItems returns the most recent stored feed items.
func (s *FeedService) LatestItems(ctx context.Context, limit int64) ([]model.FeedItem, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queries.ListFeedItems(ctx, limit)
}

// PruneOlderThan removes feed items published before the cutoff.
func (s *FeedService) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return s.queries.DeleteFeedItemsBefore(ctx, time.Now().Add(-age))
}

// parsePubDate tries the date formats RSS feeds use in the wild.
func parsePubDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}

func (s *FeedService) logFailure(ctx context.Context, message string, err error) {
	if s.events == nil {
		return
	}
	_ = s.events.LogFeedEvent(ctx, model.EventLevelWarning, message,
		map[string]any{"url": s.feedURL, "error": err.Error()})
}

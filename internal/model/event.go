// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event log levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event log categories.
const (
	EventCategoryAuth    = "auth"
	EventCategoryContent = "content"
	EventCategoryUpload  = "upload"
	EventCategoryFeed    = "feed"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)

// Event is one entry in the database-backed event log, the portal's
// observability feed.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"-"`
	IPAddress string        `json:"ip_address,omitempty"`
	Metadata  string        `json:"metadata,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// FeedItem is one ingested entry from the configured news feed.
type FeedItem struct {
	ID          int64     `json:"id"`
	GUID        string    `json:"-"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"-"`
}

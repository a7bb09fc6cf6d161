// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"

	"github.com/olegiv/clubportal-go/internal/model"
)

// PageKeyPrefix prefixes every cached rendered page key.
const PageKeyPrefix = "page:"

// Scope describes which cached pages a content mutation affects.
// A zero SubKey means every page derived from the kind.
type Scope struct {
	Kind   model.Kind
	SubKey string
}

// AllOfKind returns a scope covering every page derived from the kind.
func AllOfKind(kind model.Kind) Scope {
	return Scope{Kind: kind}
}

// GroupOfKind returns a scope covering the pages derived from one
// sub-collection of the kind (a people group or a sponsor type).
func GroupOfKind(kind model.Kind, subKey string) Scope {
	return Scope{Kind: kind, SubKey: subKey}
}

// Invalidator marks cached pages stale after a content mutation.
// Implementations must not fail the mutation that triggered them.
type Invalidator interface {
	MarkStale(ctx context.Context, scope Scope)
}

// PageInvalidator purges cached page entries for an invalidation scope.
// Purge failures are logged and swallowed: a stale page is a lesser
// evil than a failed admin write, and entries expire by TTL anyway.
type PageInvalidator struct {
	cache Cacher
	log   *slog.Logger
}

// NewPageInvalidator creates a PageInvalidator over the given cache.
func NewPageInvalidator(cache Cacher, log *slog.Logger) *PageInvalidator {
	if log == nil {
		log = slog.Default()
	}
	return &PageInvalidator{cache: cache, log: log}
}

// PageKey returns the cache key for a rendered page path.
func PageKey(path string) string {
	return PageKeyPrefix + path
}

// MarkStale purges the cached pages the scope covers.
func (p *PageInvalidator) MarkStale(ctx context.Context, scope Scope) {
	for _, t := range targetsFor(scope) {
		var err error
		if t.prefix {
			err = p.cache.DeleteByPrefix(ctx, t.key)
		} else {
			err = p.cache.Delete(ctx, t.key)
		}
		if err != nil {
			p.log.Warn("cache invalidation failed",
				"kind", scope.Kind,
				"sub_key", scope.SubKey,
				"key", t.key,
				"error", err)
		}
	}
}

type purgeTarget struct {
	key    string
	prefix bool
}

// targetsFor maps an invalidation scope to the cache keys of the pages
// rendered from that content.
func targetsFor(scope Scope) []purgeTarget {
	switch scope.Kind {
	case model.KindPerson:
		if scope.SubKey != "" {
			return []purgeTarget{{key: PageKey("/people/" + scope.SubKey)}}
		}
		return []purgeTarget{{key: PageKey("/people/"), prefix: true}}
	case model.KindSponsor:
		switch scope.SubKey {
		case model.SponsorTypeSponsor:
			return []purgeTarget{{key: PageKey("/sponsors")}}
		case model.SponsorTypePartner:
			return []purgeTarget{{key: PageKey("/partners")}}
		default:
			return []purgeTarget{
				{key: PageKey("/sponsors")},
				{key: PageKey("/partners")},
			}
		}
	case model.KindTimeline:
		return []purgeTarget{{key: PageKey("/timeline")}}
	case model.KindResource:
		return []purgeTarget{{key: PageKey("/resources"), prefix: true}}
	default:
		return nil
	}
}

var _ Invalidator = (*PageInvalidator)(nil)

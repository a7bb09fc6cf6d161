// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background jobs: hourly news-feed ingestion
// and nightly pruning of old feed items and event-log entries.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/clubportal-go/internal/service"
)

// Retention windows for the pruning job.
const (
	feedRetention  = 90 * 24 * time.Hour
	eventRetention = 180 * 24 * time.Hour
)

// Scheduler owns the cron instance and the jobs it runs.
type Scheduler struct {
	cron   *cron.Cron
	feed   *service.FeedService
	events *service.EventService
	logger *slog.Logger
}

// New creates a new scheduler. A nil feed service disables the ingestion
// job (no feed URL configured).
func New(feed *service.FeedService, events *service.EventService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		feed:   feed,
		events: events,
		logger: logger,
	}
}

// Start registers the jobs and begins the cron loop. The feed job also
// runs once immediately so a fresh deployment has news before the first
// hourly tick.
func (s *Scheduler) Start() error {
	if s.feed != nil {
		if _, err := s.cron.AddFunc("@hourly", s.refreshFeed); err != nil {
			return err
		}
		go s.refreshFeed()
	}

	if _, err := s.cron.AddFunc("15 3 * * *", s.prune); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RefreshFeedNow triggers one feed ingestion outside the schedule.
func (s *Scheduler) RefreshFeedNow(ctx context.Context) (int, error) {
	return s.feed.Refresh(ctx)
}

func (s *Scheduler) refreshFeed() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stored, err := s.feed.Refresh(ctx)
	if err != nil {
		s.logger.Error("feed refresh failed", "error", err)
		return
	}
	s.logger.Info("feed refreshed", "items", stored)
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if s.feed != nil {
		if n, err := s.feed.PruneOlderThan(ctx, feedRetention); err != nil {
			s.logger.Error("pruning feed items failed", "error", err)
		} else if n > 0 {
			s.logger.Info("pruned feed items", "count", n)
		}
	}

	if s.events != nil {
		if err := s.events.DeleteOldEvents(ctx, eventRetention); err != nil {
			s.logger.Error("pruning events failed", "error", err)
		}
	}
}

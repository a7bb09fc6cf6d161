// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/clubportal-go/internal/auth"
	"github.com/olegiv/clubportal-go/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// Seed creates initial data in the database.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	// Check if admin user already exists
	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	// Hash the default password
	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// Create admin user
	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		Name:         DefaultAdminName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}

// SeedDemoContent fills the content tables with example rows so a fresh
// install has something to show. No-op when any content already exists.
func SeedDemoContent(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	people, err := queries.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing content: %w", err)
	}
	if len(people) > 0 {
		return nil
	}

	now := time.Now()

	demoPeople := []CreatePersonParams{
		{GroupSlug: "board", Name: "Alex Rivera", Title: "President", School: "College of Business", SortOrder: 0},
		{GroupSlug: "board", Name: "Jordan Lee", Title: "Vice President", School: "College of Business", SortOrder: 1},
		{GroupSlug: "analysts", Name: "Sam Okafor", Title: "Senior Analyst", School: "College of Engineering", SortOrder: 0},
	}
	for _, p := range demoPeople {
		p.ID = uuid.New().String()
		p.CreatedAt = now
		p.UpdatedAt = now
		if _, err := queries.CreatePerson(ctx, p); err != nil {
			return fmt.Errorf("seeding person %s: %w", p.Name, err)
		}
	}

	demoSponsors := []CreateSponsorParams{
		{Type: model.SponsorTypeSponsor, Name: "acme-capital", DisplayName: "Acme Capital", Website: "https://acme.example.com", SortOrder: 0},
		{Type: model.SponsorTypePartner, Name: "campus-fintech", DisplayName: "Campus FinTech Society", SortOrder: 0},
	}
	for _, s := range demoSponsors {
		s.ID = uuid.New().String()
		s.CreatedAt = now
		s.UpdatedAt = now
		if _, err := queries.CreateSponsor(ctx, s); err != nil {
			return fmt.Errorf("seeding sponsor %s: %w", s.Name, err)
		}
	}

	demoTimeline := []CreateTimelineEventParams{
		{Title: "Club founded", EventDate: "2015-09-01", SortOrder: 0},
		{Title: "First investment competition win", EventDate: "2018-04-12", SortOrder: 1},
	}
	for _, e := range demoTimeline {
		e.ID = uuid.New().String()
		e.CreatedAt = now
		e.UpdatedAt = now
		if _, err := queries.CreateTimelineEvent(ctx, e); err != nil {
			return fmt.Errorf("seeding timeline event %s: %w", e.Title, err)
		}
	}

	demoResources := []CreateResourceParams{
		{Title: "Valuation 101 slides", TabID: "education", Section: "fundamentals", Type: "document", SortOrder: 0},
		{Title: "Pitch template", TabID: "education", Section: "templates", Type: "document", SortOrder: 0},
	}
	for _, r := range demoResources {
		r.ID = uuid.New().String()
		r.CreatedAt = now
		r.UpdatedAt = now
		if _, err := queries.CreateResource(ctx, r); err != nil {
			return fmt.Errorf("seeding resource %s: %w", r.Title, err)
		}
	}

	slog.Info("seeded demo content")
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/config"
	"github.com/olegiv/clubportal-go/internal/handler"
	"github.com/olegiv/clubportal-go/internal/logging"
	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/scheduler"
	"github.com/olegiv/clubportal-go/internal/service"
	"github.com/olegiv/clubportal-go/internal/session"
	"github.com/olegiv/clubportal-go/internal/store"
	"github.com/olegiv/clubportal-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "clubportal - investment club site and member portal\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_DB_PATH           SQLite database path (default: ./data/club.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_PORTAL_ENABLED    Member portal switch (default: true)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_REDIS_URL         Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLUB_FEED_URL          RSS source for the portal news page (optional)\n")
	}

	flag.Parse()

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Printf("clubportal %s (commit: %s, built: %s)\n",
			versionInfo.Version, versionInfo.GitCommit, versionInfo.BuildTime)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo *version.Info) error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Seed default data
	ctx := context.Background()
	if err := store.Seed(ctx, db); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	if cfg.DoSeed {
		if err := store.SeedDemoContent(ctx, db); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	// Session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Page cache (memory by default, Redis when configured)
	cacheConfig := cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}
	pageCache, err := cache.New(cacheConfig)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = pageCache.Close() }()
	if cfg.UseRedisCache() {
		slog.Info("page cache initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("page cache initialized", "backend", "memory")
	}

	invalidator := cache.NewPageInvalidator(pageCache, logger)

	// Services
	eventService := service.NewEventService(db)
	uploadService := service.NewUploadService(cfg.UploadsDir, cfg.PublicBaseURL, eventService)

	var feedService *service.FeedService
	if cfg.FeedEnabled() {
		feedService = service.NewFeedService(db, cfg.FeedURL, eventService)
	}

	// Background jobs
	sched := scheduler.New(feedService, eventService, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Login protection is shared between the middleware (per-IP rate
	// limiting) and the auth handler (account lockout tracking).
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	// Handlers
	authHandler := handler.NewAuthHandler(db, sessionManager, loginProtection)
	peopleHandler := handler.NewPeopleHandler(db, invalidator, eventService)
	sponsorsHandler := handler.NewSponsorsHandler(db, invalidator, eventService)
	timelineHandler := handler.NewTimelineHandler(db, invalidator, eventService)
	resourcesHandler := handler.NewResourcesHandler(db, invalidator, eventService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	portalHandler := handler.NewPortalHandler(db, feedService)
	eventsHandler := handler.NewEventsHandler(db)
	publicHandler := handler.NewPublicHandler(db, pageCache, time.Duration(cfg.CacheTTL)*time.Second)
	healthHandler := handler.NewHealthHandler(db, cfg.UploadsDir)

	r := newRouter(cfg, db, sessionManager, eventService, loginProtection, routeHandlers{
		auth:      authHandler,
		people:    peopleHandler,
		sponsors:  sponsorsHandler,
		timeline:  timelineHandler,
		resources: resourcesHandler,
		upload:    uploadHandler,
		portal:    portalHandler,
		events:    eventsHandler,
		public:    publicHandler,
		health:    healthHandler,
	})

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// routeHandlers bundles the handlers the router wires up.
type routeHandlers struct {
	auth      *handler.AuthHandler
	people    *handler.ContentHandler
	sponsors  *handler.ContentHandler
	timeline  *handler.ContentHandler
	resources *handler.ContentHandler
	upload    *handler.UploadHandler
	portal    *handler.PortalHandler
	events    *handler.EventsHandler
	public    *handler.PublicHandler
	health    *handler.HealthHandler
}

// newRouter assembles the chi router: public reads, auth, the member
// portal, and the admin-gated CMS surface.
func newRouter(cfg *config.Config, db *sql.DB, sm *scs.SessionManager, eventService *service.EventService, loginProtection *middleware.LoginProtection, h routeHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadUser(sm, db))

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	// Health checks
	r.Get("/health", h.health.Health)
	r.Get("/health/live", h.health.Liveness)
	r.Get("/health/ready", h.health.Readiness)

	// Public read endpoints backing the marketing pages
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Get("/people/{groupSlug}", h.public.People)
		r.Get("/sponsors", h.public.Sponsors)
		r.Get("/partners", h.public.Partners)
		r.Get("/timeline", h.public.Timeline)
		r.Get("/resources", h.public.Resources)
	})

	// Uploaded assets
	uploadsDir := http.Dir(cfg.UploadsDir)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsDir)))

	// Auth
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)
		r.With(loginProtection.Middleware()).Post("/login", h.auth.Login)
		r.Post("/logout", h.auth.Logout)
		r.Get("/me", h.auth.Me)
	})

	// Member portal
	r.Route("/portal", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.RequirePortalEnabled(cfg.PortalEnabled))
		r.Use(middleware.RequireMember(sm))
		r.Get("/directory", h.portal.Directory)
		r.Get("/resources", h.portal.Resources)
		r.Put("/settings", h.portal.Settings)
		r.Get("/news", h.portal.News)
	})

	// Admin surface: CMS CRUD, uploads, event log
	adminGate := func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.RequireMember(sm))
		r.Use(middleware.RequireAdminWithEventLog(eventService))
	}

	r.Route("/cms", func(r chi.Router) {
		adminGate(r)

		registerContentRoutes(r, "/people", h.people)
		r.Post("/people/reorder", h.people.Reorder)
		registerContentRoutes(r, "/sponsors", h.sponsors)
		registerContentRoutes(r, "/timeline", h.timeline)
		registerContentRoutes(r, "/resources", h.resources)

		r.Post("/upload", h.upload.UploadImage)
		r.Post("/resources/upload", h.upload.UploadDocument)
	})

	r.Route("/admin", func(r chi.Router) {
		adminGate(r)
		r.Get("/events", h.events.List)
	})

	return r
}

// registerContentRoutes registers the CRUD routes for one content kind.
func registerContentRoutes(r chi.Router, base string, h *handler.ContentHandler) {
	r.Get(base, h.List)
	r.Post(base, h.Create)
	r.Put(base+"/{id}", h.Update)
	r.Patch(base+"/{id}", h.Update)
	r.Delete(base+"/{id}", h.Delete)
}

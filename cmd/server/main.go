package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitat-server/internal/auth"
	"habitat-server/internal/catalog"
	"habitat-server/internal/editor"
	"habitat-server/internal/middleware"
	"habitat-server/internal/server"
	"habitat-server/internal/session"
	"habitat-server/internal/shared/config"
	"habitat-server/internal/shared/database"
	"habitat-server/internal/shared/logger"
	"habitat-server/internal/shared/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")
	log.Info("Starting Habitat server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.Database.Enabled {
		var err error
		db, err = database.Connect()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close database", "error", err)
			}
		}()

		if err := db.RunMigrations(ctx, os.DirFS(cfg.Database.MigrationsPath)); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	} else {
		log.Info("Database disabled")
	}

	redisClient, err := redis.Connect()
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", "error", err)
		}
	}()

	c, err := loadCatalog(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	sessionMetrics := session.NewMetrics()
	if err := sessionMetrics.Register(registry); err != nil {
		return fmt.Errorf("session metrics: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	manager := session.NewManager(ctx, c, editorSettings(cfg.Editor), session.Config{
		IdleTTL:         cfg.Session.IdleTTL,
		CleanupInterval: cfg.Session.CleanupInterval,
		MaxSessions:     cfg.Session.MaxSessions,
	}, sessionMetrics, slog.Default())
	go manager.Run(ctx)

	sessionService := session.NewService(manager, tokens, sessionMetrics, slog.Default())

	routes := server.NewRoutes(
		db,
		redisClient,
		c,
		sessionService,
		tokens,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		cfg.Frontend.URL,
		slog.Default(),
	)
	mux := routes.Setup()

	limiterOpts := []middleware.RateLimiterOption{middleware.WithRateLimitMetrics(httpMetrics)}
	if redisClient != nil {
		limiterOpts = append(limiterOpts, middleware.WithWindowStore(middleware.NewRedisWindowStore(redisClient)))
	}
	rateLimiter := middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		TrustProxy:        cfg.RateLimit.TrustProxy,
		WindowRequests:    cfg.RateLimit.WindowRequests,
		Window:            cfg.RateLimit.Window,
	}, limiterOpts...)

	cors := middleware.NewCORS()
	handler := cors.Middleware(
		middleware.RequestID(
			rateLimiter.Middleware(
				middleware.HTTPMetrics(httpMetrics)(mux),
			),
		),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}()

	log.Info("Habitat server listening", "addr", srv.Addr, "url", cfg.Server.URL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	log.Info("Server stopped", "sessions", manager.Count())
	return nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, db *database.DB) (*catalog.Catalog, error) {
	if cfg.Catalog.Source == config.CatalogSourceDatabase {
		repo := catalog.NewRepository(db, slog.Default())
		return repo.Load(ctx, catalog.SpriteConfig{
			PathPattern:   cfg.Catalog.SpritePattern,
			FallbackColor: cfg.Catalog.FallbackColor,
			ShapeFiles:    cfg.Catalog.ShapeFiles,
		})
	}
	return catalog.LoadYAML(cfg.Catalog.Path)
}

func editorSettings(cfg config.EditorConfig) editor.Settings {
	return editor.Settings{
		InitialScale:     cfg.InitialScale,
		MinScale:         cfg.MinScale,
		MaxScale:         cfg.MaxScale,
		ZoomFactor:       cfg.ZoomFactor,
		PlacementOrigin:  cfg.PlacementOrigin,
		PlacementSpan:    cfg.PlacementSpan,
		BaseModuleSize:   cfg.BaseModuleSize,
		ConnectionUpkeep: cfg.ConnectionUpkeep,
	}
}

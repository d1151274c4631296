package server

import (
	"context"
	"log/slog"
	"net/http"

	"habitat-server/internal/auth"
	"habitat-server/internal/catalog"
	catalogHandlers "habitat-server/internal/catalog/handlers"
	"habitat-server/internal/middleware"
	serverHandlers "habitat-server/internal/server/handlers"
	"habitat-server/internal/session"
	sessionHandlers "habitat-server/internal/session/handlers"
	"habitat-server/internal/shared/database"
	"habitat-server/internal/shared/redis"
)

type Routes struct {
	db             *database.DB
	redis          *redis.Client
	catalog        *catalog.Catalog
	sessionService *session.Service
	tokens         *auth.TokenService
	metrics        http.Handler
	allowedOrigin  string
	logger         *slog.Logger
}

// NewRoutes takes nil db or redis when those backends are disabled, and a
// nil metrics handler to leave /metrics unmounted.
func NewRoutes(db *database.DB, redisClient *redis.Client, c *catalog.Catalog, sessionService *session.Service, tokens *auth.TokenService, metrics http.Handler, allowedOrigin string, logger *slog.Logger) *Routes {
	return &Routes{
		db:             db,
		redis:          redisClient,
		catalog:        c,
		sessionService: sessionService,
		tokens:         tokens,
		metrics:        metrics,
		allowedOrigin:  allowedOrigin,
		logger:         logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.dbPinger(), r.redisPinger(), r.sessionService.Manager())
	catalogHandler := catalogHandlers.NewCatalogHandler(r.catalog)
	sessionHandler := sessionHandlers.NewSessionHandler(r.sessionService)
	streamHandler := sessionHandlers.NewStreamHandler(r.sessionService, r.allowedOrigin)

	protect := middleware.SessionAuth(r.tokens)
	protected := func(path string, h http.Handler) {
		mux.Handle(path, protect(h))
	}

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.Handle("/api/catalog", catalogHandler)
	mux.HandleFunc("/api/sessions", sessionHandler.CreateSession)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}

	// Session endpoints (token bound to {id})
	protected("/api/sessions/{id}", http.HandlerFunc(sessionHandler.Session))
	protected("/api/sessions/{id}/modules", http.HandlerFunc(sessionHandler.AddModule))
	protected("/api/sessions/{id}/modules/last", http.HandlerFunc(sessionHandler.RemoveLast))
	protected("/api/sessions/{id}/select", sessionHandler.SelectAt())
	protected("/api/sessions/{id}/drag", sessionHandler.DragTo())
	protected("/api/sessions/{id}/drag/end", sessionHandler.EndDrag())
	protected("/api/sessions/{id}/connections/begin", http.HandlerFunc(sessionHandler.BeginConnection))
	protected("/api/sessions/{id}/connections/cursor", sessionHandler.UpdateCursor())
	protected("/api/sessions/{id}/gesture/cancel", sessionHandler.CancelGesture())
	protected("/api/sessions/{id}/camera/pan", http.HandlerFunc(sessionHandler.Pan))
	protected("/api/sessions/{id}/camera/zoom", http.HandlerFunc(sessionHandler.Zoom))
	protected("/api/sessions/{id}/input", http.HandlerFunc(sessionHandler.Input))
	protected("/api/sessions/{id}/effectiveness", http.HandlerFunc(sessionHandler.Effectiveness))
	protected("/api/sessions/{id}/ws", streamHandler)

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/catalog", "/api/sessions"},
		"session_endpoints", []string{"/api/sessions/{id}", "/api/sessions/{id}/...", "/api/sessions/{id}/ws"},
		"metrics_enabled", r.metrics != nil,
	)

	return mux
}

func (r *Routes) dbPinger() serverHandlers.Pinger {
	if r.db == nil {
		return nil
	}
	return r.db
}

func (r *Routes) redisPinger() serverHandlers.Pinger {
	if r.redis == nil {
		return nil
	}
	return serverHandlers.PingFunc(func(ctx context.Context) error {
		return r.redis.Healthy(ctx, serverHandlers.HealthCheckTimeout)
	})
}

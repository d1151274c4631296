package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"habitat-server/internal/shared/response"
)

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusDisabled     = "disabled"
	HealthCheckTimeout = 2 * time.Second
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	Sessions  int    `json:"sessions"`
}

// Pinger is satisfied by the database and Redis connection wrappers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain check function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type SessionCounter interface {
	Count() int
}

type HealthHandler struct {
	db       Pinger
	redis    Pinger
	sessions SessionCounter
}

// NewHealthHandler takes nil for any dependency that is disabled.
func NewHealthHandler(db, redis Pinger, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, sessions: sessions}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  check(r.Context(), logger, "database", h.db),
		Redis:     check(r.Context(), logger, "redis", h.redis),
	}
	if resp.Database == statusDisconnected || resp.Redis == statusDisconnected {
		resp.Status = "degraded"
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Count()
	}

	response.Success(w, http.StatusOK, resp)
}

func check(ctx context.Context, logger *slog.Logger, name string, p Pinger) string {
	if p == nil {
		return statusDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		logger.Warn("Health check failed", "dependency", name, "error", err)
		return statusDisconnected
	}
	return statusConnected
}

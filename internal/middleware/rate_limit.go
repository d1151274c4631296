package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"habitat-server/internal/shared/errors"
	"habitat-server/internal/shared/response"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	Enabled           bool
	TrustProxy        bool

	// Shared fixed window, only consulted when a WindowStore is configured.
	WindowRequests int
	Window         time.Duration
}

// WindowStore counts requests per key in fixed windows shared across
// server instances.
type WindowStore interface {
	// Allow records one request for key and reports whether it fits within
	// limit, and the seconds until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter int, err error)
}

type RateLimiter struct {
	config  RateLimitConfig
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	store   WindowStore
	metrics *Metrics
}

type RateLimiterOption func(*RateLimiter)

func WithWindowStore(store WindowStore) RateLimiterOption {
	return func(rl *RateLimiter) { rl.store = store }
}

func WithRateLimitMetrics(m *Metrics) RateLimiterOption {
	return func(rl *RateLimiter) { rl.metrics = m }
}

// NewRateLimiter builds the limiter; idle per-client buckets are swept until
// ctx is done.
func NewRateLimiter(ctx context.Context, config RateLimitConfig, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(rl)
	}

	if config.Enabled {
		go rl.cleanupClients(ctx)
	}

	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clients[ip]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.clients[ip]; !exists {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
		rl.clients[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

// sweep drops clients whose bucket has refilled completely.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, limiter := range rl.clients {
		if limiter.TokensAt(now) >= float64(rl.config.BurstSize) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r, rl.config.TrustProxy)
		logger := slog.With(
			"middleware", "rate_limit",
			"client_ip", ip,
			"method", r.Method,
			"path", r.URL.Path,
		)

		if !rl.getLimiter(ip).Allow() {
			rl.metrics.IncRateLimitBlocked("local")
			w.Header().Set("Retry-After", "1")
			response.Error(w, r, logger, errors.RateLimited("rate limit exceeded"))
			return
		}

		if rl.store != nil && rl.config.WindowRequests > 0 {
			allowed, retryAfter, err := rl.store.Allow(r.Context(), "ratelimit:"+ip, rl.config.WindowRequests, rl.config.Window)
			switch {
			case err != nil:
				rl.metrics.IncRateLimitStoreErrors()
				logger.Warn("Shared rate limit store unavailable, allowing request", "error", err)
			case !allowed:
				rl.metrics.IncRateLimitBlocked("shared")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, r, logger, errors.RateLimited("rate limit exceeded"))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can be comma-separated; first entry is the client
			if i := strings.IndexByte(xff, ','); i != -1 {
				return strings.TrimSpace(xff[:i])
			}
			return strings.TrimSpace(xff)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

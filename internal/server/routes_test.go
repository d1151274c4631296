package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"habitat-server/internal/auth"
	"habitat-server/internal/catalog"
	"habitat-server/internal/editor"
	"habitat-server/internal/session"
	"habitat-server/internal/shared/config"
)

func newTestRoutes(t *testing.T) *http.ServeMux {
	t.Helper()

	prev := config.GlobalConfig
	t.Cleanup(func() { config.GlobalConfig = prev })
	config.GlobalConfig = &config.Config{
		Auth:     config.AuthConfig{TokenExpiration: time.Hour},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
	}

	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() failed: %v", err)
	}
	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(ctx, c, editor.DefaultSettings(), session.Config{IdleTTL: time.Hour, MaxSessions: 5}, nil, logger)
	svc := session.NewService(manager, tokens, nil, logger)

	return NewRoutes(nil, nil, c, svc, tokens, nil, "", logger).Setup()
}

func TestRoutes_SessionAccess(t *testing.T) {
	mux := newTestRoutes(t)

	create := func() session.CreateResult {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
		var res session.CreateResult
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		return res
	}
	a, b := create(), create()

	get := func(id, token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/effectiveness", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := get(a.ID, a.Token); code != http.StatusOK {
		t.Errorf("own session status = %d, want 200", code)
	}
	if code := get(a.ID, ""); code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", code)
	}
	if code := get(a.ID, b.Token); code != http.StatusForbidden {
		t.Errorf("foreign token status = %d, want 403", code)
	}
	if code := get(a.ID, "garbage"); code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", code)
	}
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	mux := newTestRoutes(t)

	for _, path := range []string{"/api/server/health", "/api/catalog"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without a registry status = %d, want 404", rec.Code)
	}
}

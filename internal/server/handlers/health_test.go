package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubCounter int

func (c stubCounter) Count() int { return int(c) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name      string
		db, redis Pinger
		want      HealthResponse
	}{
		{
			name: "all disabled",
			want: HealthResponse{Status: "healthy", Database: "disabled", Redis: "disabled", Sessions: 3},
		},
		{
			name:  "all connected",
			db:    stubPinger{},
			redis: stubPinger{},
			want:  HealthResponse{Status: "healthy", Database: "connected", Redis: "connected", Sessions: 3},
		},
		{
			name:  "redis down",
			db:    stubPinger{},
			redis: stubPinger{err: errors.New("connection refused")},
			want:  HealthResponse{Status: "degraded", Database: "connected", Redis: "disconnected", Sessions: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.redis, stubCounter(3))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			got.Timestamp = ""
			if got != tt.want {
				t.Errorf("health = %+v, want %+v", got, tt.want)
			}
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetrics_LabelsByRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := HTTPMetrics(metrics)(mux)

	for _, path := range []string{"/api/sessions/a", "/api/sessions/b", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := counterValue(t, reg, MetricHTTPRequestsTotal, map[string]string{"route": "GET /api/sessions/{id}", "status": "200"}); got != 2 {
		t.Errorf("session route count = %v, want 2", got)
	}
	if got := counterValue(t, reg, MetricHTTPRequestsTotal, map[string]string{"route": "unmatched", "status": "404"}); got != 1 {
		t.Errorf("unmatched count = %v, want 1", got)
	}
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := NewMetrics().Register(reg); err != nil {
		t.Fatalf("first Register() failed: %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Error("duplicate registration should fail")
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"habitat-server/internal/catalog"
)

func TestCatalogHandler(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() failed: %v", err)
	}
	h := NewCatalogHandler(c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp CatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.ModuleTypes) != 13 || len(resp.Shapes) != 3 {
		t.Errorf("catalog = %d types, %d shapes", len(resp.ModuleTypes), len(resp.Shapes))
	}
	if resp.ModuleTypes[0].Key != "vivienda" {
		t.Errorf("first type = %q", resp.ModuleTypes[0].Key)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/catalog", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIResponseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	err := Respond(rec, req).JSON(map[string]string{"message": "ok"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unparsable body: %v", err)
	}
	if body["message"] != "ok" {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestAPIResponseCacheStatus(t *testing.T) {
	statuses := []string{"HIT", "MISS", "NEGATIVE_HIT"}

	for _, status := range statuses {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()

		Respond(rec, req).SetCacheStatus(status).JSON(map[string]string{})

		if got := rec.Header().Get("X-Cache-Status"); got != status {
			t.Errorf("Expected X-Cache-Status %q, got %q", status, got)
		}
	}
}

func TestAPIResponseNoCacheStatusByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	Respond(rec, req).JSON(map[string]string{})

	if got := rec.Header().Get("X-Cache-Status"); got != "" {
		t.Errorf("Expected no X-Cache-Status header, got %q", got)
	}
}

func TestAPIResponseError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	Respond(rec, req).Error(http.StatusNotFound, map[string]string{"error": "not found"})

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
}

func TestAPIResponseRawJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	body := `{"id":"abc","name":"cached"}`
	Respond(rec, req).SetCacheStatus("HIT").RawJSON(body)

	if rec.Body.String() != body {
		t.Errorf("Expected raw body passthrough, got %q", rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected HIT, got %q", got)
	}
}

func TestAPIResponseRateLimitType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), rateLimitTypeKey, "normal")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	Respond(rec, req).JSON(map[string]string{})

	if got := rec.Header().Get("X-RateLimit-Type"); got != "normal" {
		t.Errorf("Expected normal, got %q", got)
	}
}

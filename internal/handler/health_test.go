package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/clubportal-go/internal/model"
)

func TestHealth_AnonymousSeesStatusOnly(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db, t.TempDir())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if _, ok := body["checks"]; ok {
		t.Error("anonymous caller must not see check details")
	}
}

func TestHealth_AdminSeesChecks(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db, t.TempDir())

	admin := model.User{ID: 1, Email: "admin@club.test", Role: model.RoleAdmin}
	req := withUser(httptest.NewRequest(http.MethodGet, "/health", nil), admin)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string                    `json:"status"`
		Uptime string                    `json:"uptime"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if _, ok := body.Checks["database"]; !ok {
		t.Error("missing database check")
	}
	if _, ok := body.Checks["disk"]; !ok {
		t.Error("missing disk check")
	}
}

func TestHealthLivenessAndReadiness(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db, t.TempDir())

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness status = %d, want 200", rec.Code)
	}
}

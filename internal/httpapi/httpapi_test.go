package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewHandler(log)
}

func TestHealthzReturnsOK(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSnapshotReturns404BeforeFirstCycle(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any snapshot is published, got %d", rec.Code)
	}
}

func TestSnapshotReturnsLatestAfterSetLatest(t *testing.T) {
	h := newTestHandler(t)
	snap := &snapshot.Snapshot{Timestamp: 1234}
	h.SetLatest(snap, snapshot.Stats{Runs: 1})

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatsReturnsCurrentCounters(t *testing.T) {
	h := newTestHandler(t)
	h.SetLatest(&snapshot.Snapshot{}, snapshot.Stats{Runs: 7, AircraftCount: 3})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

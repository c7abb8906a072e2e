// Package httpapi exposes a read-only operator surface over the
// pipeline's last published Snapshot and cumulative stats. It never
// writes, and is not a full dashboard UI, just health/snapshot/stats
// endpoints for operators and debugging tools.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// Handler serves the debug endpoints. State is set by the pipeline
// after each cycle via SetLatest; reads are lock-protected since the
// HTTP server and the scheduler loop run concurrently.
type Handler struct {
	logger *logger.Logger

	mu     sync.RWMutex
	latest *snapshot.Snapshot
	stats  snapshot.Stats
}

// NewHandler constructs a Handler with no snapshot yet recorded.
func NewHandler(log *logger.Logger) *Handler {
	return &Handler{logger: log.Named("http-api")}
}

// SetLatest records the most recently published Snapshot and Stats,
// called by the pipeline after every cycle (successful or not).
func (h *Handler) SetLatest(snap *snapshot.Snapshot, stats snapshot.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = snap
	h.stats = stats
}

// Routes builds the chi router for the debug API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", h.getHealth)
	r.Get("/snapshot", h.getSnapshot)
	r.Get("/stats", h.getStats)

	return r
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	snap := h.latest
	h.mu.RUnlock()

	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot published yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	stats := h.stats
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

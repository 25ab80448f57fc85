package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves readiness checks.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler over db.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

// RegisterHealth registers GET /health/ready. Liveness at /health is served
// by the heartbeat middleware.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health/ready", h.Ready)
}

// Ready reports 200 when the database answers, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unavailable",
			"database": err.Error(),
		})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

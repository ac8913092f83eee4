// Package health implements liveness and readiness checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything whose connectivity readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck serves the liveness and readiness endpoints.
type HealthCheck struct {
	stores []Pinger
	logger *zap.Logger
}

// NewHealthCheck creates a health check over the given stores.
func NewHealthCheck(logger *zap.Logger, stores ...Pinger) *HealthCheck {
	return &HealthCheck{stores: stores, logger: logger}
}

// LivenessHandler reports that the process is up.
func (h *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports whether the backing stores are reachable.
func (h *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, s := range h.stores {
		if err := s.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

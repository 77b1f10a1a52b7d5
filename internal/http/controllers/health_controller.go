package controllers

import (
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

// HealthController responde los checks de liveness y readiness.
type HealthController struct {
	store repository.Store
	cache cache.Client
}

// NewHealthController crea el controller. cacheClient puede ser nil.
func NewHealthController(store repository.Store, cacheClient cache.Client) *HealthController {
	return &HealthController{store: store, cache: cacheClient}
}

// Live maneja GET /healthz.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready maneja GET /readyz. La base es obligatoria; el cache reporta pero
// no baja el readiness (el sistema degrada sin él).
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"database": "ok", "cache": "disabled"}
	status := http.StatusOK

	if err := c.store.Ping(r.Context()); err != nil {
		resp["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	if c.cache != nil {
		resp["cache"] = "ok"
		if err := c.cache.Ping(r.Context()); err != nil {
			resp["cache"] = "down"
		} else if stats, err := c.cache.Stats(r.Context()); err == nil {
			resp["cache_keys"] = stats.Keys
		}
	}

	writeJSON(w, status, resp)
}

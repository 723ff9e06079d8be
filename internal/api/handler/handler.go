// Package handler provides HTTP handlers for all API endpoints.
// On-demand queries go through watcher.Query and are cached as rendered JSON;
// delivery history is read from the notifications store.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/albapepper/gagwatch/internal/api/respond"
	"github.com/albapepper/gagwatch/internal/cache"
	"github.com/albapepper/gagwatch/internal/notifications"
)

// Querier answers on-demand stock and weather requests.
type Querier interface {
	Stock(ctx context.Context) (notifications.Message, error)
	Weather(ctx context.Context) (notifications.Message, error)
}

// Pinger checks a backing store. Satisfied by *db.Pool.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	query   Querier
	history notifications.History
	cache   *cache.Cache
	db      Pinger
	version string
}

// New creates a Handler with shared dependencies. history and db may be nil.
func New(query Querier, history notifications.History, c *cache.Cache, db Pinger, version string) *Handler {
	return &Handler{
		query:   query,
		history: history,
		cache:   c,
		db:      db,
		version: version,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns service name, version, status and docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "gagwatch",
		"version": h.version,
		"status":  "running",
		"docs":    "/docs",
		"metrics": "/metrics",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies history database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity when delivery history is enabled.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "disabled",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory query cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

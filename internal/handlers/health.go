package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/deal-planner/internal/cache"
)

const healthTimeout = 3 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string       `json:"status"`
	Source  string       `json:"source"`
	Circuit string       `json:"circuit"`
	Checks  HealthChecks `json:"checks"`
	Cache   cache.Stats  `json:"cache"`
}

// HealthChecks lists the result of each dependency probe.
type HealthChecks struct {
	Source bool `json:"source"`
	Cache  bool `json:"cache"`
}

// HealthCheck handles GET /health. An unreachable source while the cache
// still works is reported as degraded with 200, since stale data can still
// be served.
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	var checks HealthChecks
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks.Source = h.discounts.SourceHealthy(gctx)
		return nil
	})
	g.Go(func() error {
		checks.Cache = h.discounts.CacheHealthy(gctx)
		return nil
	})
	_ = g.Wait()

	resp := HealthResponse{
		Status:  "ok",
		Source:  h.discounts.SourceName(),
		Circuit: h.discounts.CircuitState().String(),
		Checks:  checks,
		Cache:   h.discounts.CacheStats(),
	}
	status := http.StatusOK
	switch {
	case !checks.Cache:
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case !checks.Source:
		resp.Status = "degraded"
	}
	c.JSON(status, resp)
}

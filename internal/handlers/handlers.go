// Package handlers exposes the planner and discount search over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/cache"
	"github.com/kosarica/deal-planner/internal/discounts"
	"github.com/kosarica/deal-planner/internal/planner"
	"github.com/kosarica/deal-planner/internal/types"
)

// Discounts is the part of *discounts.Matcher the handlers use.
type Discounts interface {
	planner.DiscountFinder
	SourceName() string
	SourceHealthy(ctx context.Context) bool
	CacheHealthy(ctx context.Context) bool
	CacheStats() cache.Stats
	CircuitState() discounts.CircuitBreakerState
}

// Handlers holds the collaborators shared by every route.
type Handlers struct {
	planner   *planner.Planner
	discounts Discounts
	logger    zerolog.Logger
}

// New returns Handlers. A nil logger disables logging.
func New(p *planner.Planner, d Discounts, logger *zerolog.Logger) *Handlers {
	h := &Handlers{planner: p, discounts: d, logger: zerolog.Nop()}
	if logger != nil {
		h.logger = logger.With().Str("component", "handlers").Logger()
	}
	return h
}

// Register mounts the API routes on router.
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/health", h.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/optimize", h.Optimize)
		v1.GET("/discounts", h.ListDiscounts)
	}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// abort maps err onto a status code: 400 for invalid input, 502 for
// upstream failures, 504 for deadlines, 500 for the rest.
func (h *Handlers) abort(c *gin.Context, err error) {
	var validation types.ValidationError
	var upstream *types.UpstreamError
	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: validation.Reason, Field: validation.Field})
	case errors.As(err, &upstream):
		h.logger.Warn().Err(err).Str("source", upstream.Source).Int("status", upstream.StatusCode).Msg("Upstream failure")
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: "discount source unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

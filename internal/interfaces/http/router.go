// Package http serves the worker's ops endpoints: probes, metrics and run
// summaries.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/npl-scorer/internal/interfaces/http/handlers"
	"github.com/turtacn/npl-scorer/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the ops router.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Mode string // gin mode: "debug" | "release" | "test"

	HealthHandler  *handlers.HealthHandler
	ScoringHandler *handlers.ScoringHandler

	Logger           logging.Logger
	Logging          middleware.LoggingConfig
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.NPLMetrics
}

// NewRouter builds the ops route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	var rec middleware.RequestRecorder
	if cfg.Metrics != nil {
		rec = cfg.Metrics
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging, rec))

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	v1 := r.Group("/v1")
	if h := cfg.ScoringHandler; h != nil {
		v1.GET("/summary", h.Summary)
		v1.GET("/fragments/stats", h.FragmentStats)
		v1.GET("/reports", h.Reports)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: "NOT_FOUND", Message: "no such endpoint"})
	})
	return r
}

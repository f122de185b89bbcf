// Package api serves the daemon's local status API.
//
// The API binds to localhost only. It exists so operators and the status
// subcommand can inspect the running daemon without touching the agent or
// the control plane: liveness, the last reconciliation summary, Prometheus
// metrics, and a trigger for an immediate run.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/internal/logging"
	"github.com/MyStarInYourSky/zthost/internal/metrics"
)

// RouterConfig holds configuration for setting up the HTTP router.
type RouterConfig struct {
	// Logger is the Zap logger for request logging.
	Logger *zap.Logger

	// Status provides the daemon state served on /status and accepts
	// reconcile triggers.
	Status StatusProvider
}

// SetupRouter creates and configures the Gin router with all routes and
// middleware.
func SetupRouter(config *RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(config.Logger))

	handler := NewHandler(config.Status)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry,
		promhttp.HandlerOpts{},
	)))

	health := router.Group("/health")
	{
		health.GET("/live", handler.Liveness)
		health.GET("/ready", handler.Readiness)
	}

	router.GET("/status", handler.Status)
	router.POST("/reconcile", handler.TriggerReconcile)

	return router
}

// requestLogger logs one line per request at debug level. The API is
// localhost-only and low-traffic, so there is no sampling.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String(logging.FieldPath, c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

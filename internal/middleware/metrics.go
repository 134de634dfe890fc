// Package middleware holds the Gin middleware for the Lexxi API. All of
// it is registered in internal/api/router.go ahead of the route
// handlers, so every request passes through regardless of endpoint.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexxi/lexxi/internal/telemetry"
)

// MetricsMiddleware records request count and latency per route into
// the Prometheus collectors in internal/telemetry.
//
// The path label uses the matched route template from c.FullPath()
// (for example /api/v1/trials/:id/publications) so trial IDs and case
// numbers never become label values. Unmatched requests are bucketed
// under "<no-route>" to keep scanners from inflating cardinality.
//
// Register it after gin.Recovery so the status written by the recovery
// handler is the one counted.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

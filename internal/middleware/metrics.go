package middleware

import (
	"time"

	"envis/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP request metrics middleware
 * @description
 * - Counts every request by route, records handling latency and flags
 *   responses with status >= 400 as errors
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		services.IncrementRequestCount(route)
		services.RecordRequestDuration(route, duration)
		if statusCode >= 400 {
			services.IncrementErrorCount(route)
		}
	}
}

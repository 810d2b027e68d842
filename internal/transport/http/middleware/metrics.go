package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request latency and counts. Routes mounted under several
// prefixes share one path label: the prefix is stripped before recording.
func Metrics(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := routeLabel(c.FullPath(), prefixes)
		method := c.Request.Method
		duration := time.Since(start).Seconds()

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}

func routeLabel(fullPath string, prefixes []string) string {
	if fullPath == "" {
		return "unknown"
	}
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(fullPath, p); ok && strings.HasPrefix(rest, "/") {
			return rest
		}
	}
	return fullPath
}

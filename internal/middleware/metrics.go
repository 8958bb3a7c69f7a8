package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/d60-Lab/yatube/internal/metrics"
)

// Metrics records request count, latency and in-flight requests. Routes are
// labelled by their pattern so /posts/1/ and /posts/2/ share a series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		metrics.InFlightRequests.Inc()
		defer metrics.InFlightRequests.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		timer := prometheus.NewTimer(metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route))
		c.Next()
		timer.ObserveDuration()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

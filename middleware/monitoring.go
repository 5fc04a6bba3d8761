package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	sweepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_transitions_total",
			Help: "Total lifecycle transitions performed by sweeps",
		},
		[]string{"transition"},
	)
)

// InitPrometheus registers the metrics. Call this from main.go
func InitPrometheus() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(sweepTransitionsTotal)
}

// CountTransition records one lifecycle transition ("activated"/"completed").
func CountTransition(transition string, n int) {
	sweepTransitionsTotal.WithLabelValues(transition).Add(float64(n))
}

// MonitorMiddleware tracks request counts and latency per route.
// Uses the route pattern, not the raw path, so IDs don't explode cardinality.
func MonitorMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		httpRequestsTotal.WithLabelValues(path, c.Method(), strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(path, c.Method()).Observe(time.Since(start).Seconds())
		return err
	}
}

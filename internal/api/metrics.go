package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/naperu/leadlens/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request count, latency and in-flight requests. The
// route label is the matched template, not the raw path, so lead ids do
// not blow up cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		metrics.HTTPRequestsTotal.With(labels).Inc()
		metrics.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

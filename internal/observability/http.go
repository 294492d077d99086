package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler adapts the Prometheus scrape handler onto a Fiber route,
// making sure the collectors are registered before the first scrape.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	scrape := promhttp.Handler()
	return adaptor.HTTPHandler(scrape)
}

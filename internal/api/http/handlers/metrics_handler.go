package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/mail-service/internal/observability"
)

// NewMetricsHandler serves the prometheus exposition of metrics.
func NewMetricsHandler(metrics *observability.Metrics) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
}

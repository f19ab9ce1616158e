package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mail-service/internal/persistence"
)

const readinessTimeout = 2 * time.Second

type probe struct {
	name  string
	check func(context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []probe
	skipped     map[string]string
}

// NewHealthHandler returns a new handler instance. Postgres is only probed
// when a pool exists; a nil redis means sessions do not live there.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	h := &HealthHandler{serviceName: serviceName, version: version, skipped: map[string]string{}}
	if postgres.Enabled() {
		h.probes = append(h.probes, probe{name: "postgres", check: postgres.Ping})
	} else {
		h.skipped["postgres"] = "in-memory store"
	}
	if redis != nil {
		h.probes = append(h.probes, probe{name: "redis", check: redis.Ping})
	}
	return h
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every dependency and answers 503 if any is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{}
	for name, reason := range h.skipped {
		deps[name] = "skipped: " + reason
	}
	failed := false
	for _, p := range h.probes {
		if err := p.check(ctx); err != nil {
			deps[p.name] = err.Error()
			failed = true
			continue
		}
		deps[p.name] = "ok"
	}

	if failed {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}

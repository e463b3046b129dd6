package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/version"
)

// HealthHandler reports liveness plus a snapshot of scheduler activity.
type HealthHandler struct {
	facade *engine.SchedulerFacade
}

// NewHealthHandler builds a HealthHandler bound to facade.
func NewHealthHandler(facade *engine.SchedulerFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Live answers whether the process is up, no dependency checks.
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /healthz [get]
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return Success(c, fiber.Map{"status": "ok", "version": version.String()})
}

// Ready reports scheduler lifecycle state and current load, used by
// orchestrators to gate traffic.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /readyz [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if !h.facade.IsStarted() {
		return ServiceUnavailable(c, "scheduler not started")
	}
	return Success(c, fiber.Map{
		"status":    "ready",
		"executing": h.facade.ExecutingCount(),
	})
}

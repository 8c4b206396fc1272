package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"doccustody/internal/database"
	"doccustody/internal/service"
)

// HealthCheck pings the database and, when svc is set, reports the anchor backend.
//
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB, svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if err := database.Ping(c.UserContext(), db); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		body := fiber.Map{"status": "healthy"}
		if svc != nil {
			body["anchor"] = svc.AnchorInfo(c.UserContext())
		}
		return c.Status(fiber.StatusOK).JSON(body)
	}
}

// LivenessProbe always answers 200 while the process serves requests.
//
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

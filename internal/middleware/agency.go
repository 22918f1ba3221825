package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/authz"
	"github.com/uof-cases/incident-service/internal/dto"
)

// AgencyRequired rejects callers whose token names no active agency.
func AgencyRequired(registry *agency.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := authz.GetPrincipal(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if p.AgencyID == "" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "agency_id claim is required",
			})
		}
		if !registry.IsActive(p.AgencyID) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown or inactive agency: " + p.AgencyID,
			})
		}
		return c.Next()
	}
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/authz"
	"github.com/uof-cases/incident-service/internal/dto"
)

// RequireRole lets the request through only when allowed accepts the caller.
func RequireRole(allowed func(authz.Principal) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := authz.GetPrincipal(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if !allowed(p) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Insufficient role",
			})
		}
		return c.Next()
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

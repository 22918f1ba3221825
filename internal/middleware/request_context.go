package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/logging"
)

// RequestContext copies the request id set by the requestid middleware into
// the user context so service logs can be correlated with the request.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.GetRespHeader(fiber.HeaderXRequestID)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

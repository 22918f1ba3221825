package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/authz"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/handlers"
	"github.com/uof-cases/incident-service/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	registry *agency.Registry,
	healthHandler *handlers.HealthHandler,
	reportHandler *handlers.ReportHandler,
	statementHandler *handlers.StatementHandler,
	incidentHandler *handlers.IncidentHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	protected := api.Group("", middleware.JWTProtected(cfg), middleware.AgencyRequired(registry))

	// Reporter
	protected.Post("/reports", reportHandler.Create)
	protected.Get("/reports", reportHandler.List)
	protected.Get("/reports/:id", reportHandler.Get)
	protected.Put("/reports/:id", reportHandler.Update)
	protected.Post("/reports/:id/submit", reportHandler.Submit)

	// Involved staff
	protected.Get("/statements", statementHandler.List)
	protected.Get("/reports/:id/statement", statementHandler.Get)
	protected.Put("/reports/:id/statement", statementHandler.Save)
	protected.Post("/reports/:id/statement/submit", statementHandler.Submit)
	protected.Post("/statements/:id/amendments", statementHandler.AddAmendment)
	protected.Get("/statements/:id/amendments", statementHandler.Amendments)
	protected.Post("/statements/:id/removal-request", statementHandler.RequestRemoval)

	// Reviewers and coordinators
	incidents := protected.Group("/incidents", middleware.RequireRole(authz.CanViewIncidents))
	incidents.Get("", incidentHandler.List)
	incidents.Get("/:id/logs", incidentHandler.Logs)

	coordinator := protected.Group("/coordinator", middleware.RequireRole(authz.CanManageStatements))
	coordinator.Delete("/reports/:id", incidentHandler.DeleteReport)
	coordinator.Delete("/statements/:id", incidentHandler.RemoveStatement)
	coordinator.Post("/statements/:id/refuse-removal", incidentHandler.RefuseRemoval)
	coordinator.Post("/reminders/run", middleware.RequireRole(authz.CanRunReminders), incidentHandler.RunReminders)
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/database"
	"github.com/uof-cases/incident-service/internal/dto"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db       *gorm.DB
	registry *agency.Registry
}

func NewHealthHandler(db *gorm.DB, registry *agency.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus := "ok", "ok"
	if err := database.Ping(h.db); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DB:          dbStatus,
		AgencyCount: len(h.registry.All()),
	})
}

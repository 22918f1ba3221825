package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/dto"
	"github.com/uof-cases/incident-service/internal/services"
)

// ReminderRunner runs one statement reminder tick on demand.
type ReminderRunner interface {
	RunNow(ctx context.Context) (int, error)
}

// IncidentHandler serves the reviewer and coordinator views across an agency.
type IncidentHandler struct {
	reports    *services.ReportService
	statements *services.StatementService
	reminders  ReminderRunner
}

func NewIncidentHandler(reports *services.ReportService, statements *services.StatementService, reminders ReminderRunner) *IncidentHandler {
	return &IncidentHandler{reports: reports, statements: statements, reminders: reminders}
}

func (h *IncidentHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	page, err := h.reports.ListForAgency(c.UserContext(), p, c.Query("status"), c.QueryInt("page", 1))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *IncidentHandler) Logs(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	logs, err := h.reports.Logs(c.UserContext(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"items": logs})
}

func (h *IncidentHandler) DeleteReport(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.reports.Delete(c.UserContext(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *IncidentHandler) RemoveStatement(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.statements.Remove(c.UserContext(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *IncidentHandler) RefuseRemoval(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.statements.RefuseRemoval(c.UserContext(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Removal request refused"})
}

func (h *IncidentHandler) RunReminders(c *fiber.Ctx) error {
	sent, err := h.reminders.RunNow(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RunRemindersResponse{Sent: sent})
}

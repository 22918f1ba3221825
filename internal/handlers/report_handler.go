package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/dto"
	"github.com/uof-cases/incident-service/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	owner := services.StaffRef{UserID: p.UserID, Name: p.Name, Email: p.Email}
	id, err := h.reports.CreateDraft(c.UserContext(), owner, req.SubjectRef, p.AgencyID, req.Form)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateReportResponse{ID: id})
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	page, err := h.reports.ListForOwner(c.UserContext(), p.UserID, c.QueryInt("page", 1))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	report, err := h.reports.Get(c.UserContext(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.reports.UpdateDraft(c.UserContext(), p.UserID, id, req.Form, req.IncidentDate); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Report saved"})
}

// Submit files the report and requests statements from the involved staff.
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req dto.SubmitReportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	involved := make([]services.StaffRef, 0, len(req.InvolvedStaff))
	for _, s := range req.InvolvedStaff {
		involved = append(involved, services.StaffRef{UserID: s.UserID, Name: s.Name, Email: s.Email})
	}
	submitter := services.StaffRef{UserID: p.UserID, Name: p.Name, Email: p.Email}

	outcome, err := h.reports.Submit(c.UserContext(), p.UserID, id, submitter, involved)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(outcome)
}

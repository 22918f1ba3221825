package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uof-cases/incident-service/internal/dto"
	"github.com/uof-cases/incident-service/internal/services"
)

type StatementHandler struct {
	statements *services.StatementService
}

func NewStatementHandler(statements *services.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

func (h *StatementHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	page, err := h.statements.ListForUser(c.UserContext(), p.UserID, c.QueryInt("page", 1))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// Get returns the caller's statement on the report in the path.
func (h *StatementHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	reportID, err := idParam(c)
	if err != nil {
		return err
	}

	st, err := h.statements.GetForUser(c.UserContext(), p.UserID, reportID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(st)
}

func (h *StatementHandler) Save(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	reportID, err := idParam(c)
	if err != nil {
		return err
	}

	var req dto.SaveStatementRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	answer := services.StatementAnswer{
		LastTrainingMonth: req.LastTrainingMonth,
		LastTrainingYear:  req.LastTrainingYear,
		JobStartYear:      req.JobStartYear,
		Statement:         req.Statement,
	}
	if err := h.statements.Save(c.UserContext(), p.UserID, reportID, answer); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Statement saved"})
}

func (h *StatementHandler) Submit(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	reportID, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.statements.Submit(c.UserContext(), p.UserID, reportID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Statement submitted"})
}

func (h *StatementHandler) RequestRemoval(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req dto.RemovalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.statements.RequestRemoval(c.UserContext(), p.UserID, id, req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Removal requested"})
}

func (h *StatementHandler) AddAmendment(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req dto.AmendmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.statements.AddAmendment(c.UserContext(), p.UserID, id, req.Comment); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Amendment added"})
}

func (h *StatementHandler) Amendments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	page, err := h.statements.Amendments(c.UserContext(), p, id, c.QueryInt("page", 1))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

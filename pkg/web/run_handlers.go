package web

import (
	"github.com/gofiber/fiber/v3"
)

// StartRun accepts a run and returns before it ends; GetRun reports its progress.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	workflowID := c.Params("id")

	run, err := h.workflowService.StartRun(c.Context(), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(RunResponse{WorkflowID: workflowID, RunID: run.ID()})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	status, err := h.workflowService.RunStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	err := h.workflowService.CancelRun(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) PauseRun(c fiber.Ctx) error {
	err := h.workflowService.PauseRun(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) ResumeRun(c fiber.Ctx) error {
	err := h.workflowService.ResumeRun(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

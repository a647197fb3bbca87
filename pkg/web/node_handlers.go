package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/services"
)

func (h *APIHandlers) GetWorkflowNodes(c fiber.Ctx) error {
	nodes, err := h.workflowService.Nodes(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(nodes)
}

func (h *APIHandlers) CreateWorkflowNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.registry.ValidateNode(&models.WorkflowNode{ID: req.ID, Type: models.NodeType(req.Type), Config: req.Config})
	if err != nil {
		return handleServiceError(c, err)
	}

	node, err := h.workflowService.CreateNode(c.Context(), c.Params("id"), services.CreateNodeRequest{
		ID:     req.ID,
		Type:   models.NodeType(req.Type),
		Name:   req.Name,
		Config: req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) GetWorkflowNode(c fiber.Ctx) error {
	node, err := h.workflowService.GetNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) UpdateWorkflowNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflowID, nodeID := c.Params("id"), c.Params("nodeId")

	if req.Config != nil {
		current, err := h.workflowService.GetNode(c.Context(), workflowID, nodeID)
		if err != nil {
			return handleServiceError(c, err)
		}

		err = h.registry.ValidateNode(&models.WorkflowNode{ID: nodeID, Type: current.Type, Config: req.Config})
		if err != nil {
			return handleServiceError(c, err)
		}
	}

	node, err := h.workflowService.UpdateNode(c.Context(), workflowID, nodeID, services.UpdateNodeRequest{
		Name:   req.Name,
		Config: req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteWorkflowNode(c fiber.Ctx) error {
	err := h.workflowService.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ResetWorkflowNode returns a finished node to idle.
func (h *APIHandlers) ResetWorkflowNode(c fiber.Ctx) error {
	node, err := h.workflowService.ResetNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) GetWorkflowNodeHistory(c fiber.Ctx) error {
	history, err := h.workflowService.NodeHistory(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(history)
}

func (h *APIHandlers) GetWorkflowConnections(c fiber.Ctx) error {
	connections, err := h.workflowService.Connections(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(connections)
}

// CreateWorkflowConnection adds an edge. An edge that would close a cycle is answered with 422.
func (h *APIHandlers) CreateWorkflowConnection(c fiber.Ctx) error {
	var req CreateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	connection, err := h.workflowService.CreateConnection(c.Context(), c.Params("id"), req.From, req.To)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(connection)
}

func (h *APIHandlers) DeleteWorkflowConnection(c fiber.Ctx) error {
	err := h.workflowService.DeleteConnection(c.Context(), c.Params("id"), c.Params("connectionId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts every API endpoint on router.
func RegisterRoutes(router fiber.Router, handlers *APIHandlers) {
	router.Get("/health", handlers.HealthCheck)
	router.Get("/components", handlers.GetComponents)

	w := router.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/order", handlers.GetOrder)

	w.Get("/:id/nodes", handlers.GetWorkflowNodes)
	w.Post("/:id/nodes", handlers.CreateWorkflowNode)
	w.Get("/:id/nodes/:nodeId", handlers.GetWorkflowNode)
	w.Patch("/:id/nodes/:nodeId", handlers.UpdateWorkflowNode)
	w.Delete("/:id/nodes/:nodeId", handlers.DeleteWorkflowNode)
	w.Post("/:id/nodes/:nodeId/reset", handlers.ResetWorkflowNode)
	w.Get("/:id/nodes/:nodeId/history", handlers.GetWorkflowNodeHistory)

	w.Get("/:id/connections", handlers.GetWorkflowConnections)
	w.Post("/:id/connections", handlers.CreateWorkflowConnection)
	w.Delete("/:id/connections/:connectionId", handlers.DeleteWorkflowConnection)

	w.Post("/:id/runs", handlers.StartRun)
	w.Get("/:id/runs/current", handlers.GetRun)
	w.Post("/:id/runs/current/cancel", handlers.CancelRun)
	w.Post("/:id/runs/current/pause", handlers.PauseRun)
	w.Post("/:id/runs/current/resume", handlers.ResumeRun)
}

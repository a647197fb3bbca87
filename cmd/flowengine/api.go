package main

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/ryxhub/flowengine/pkg/registry"
	"github.com/ryxhub/flowengine/pkg/services"
	"github.com/ryxhub/flowengine/pkg/web"
)

type API struct {
	logger          *slog.Logger
	workflowService *services.Workflow
	registry        *registry.Registry
}

func NewAPI(
	logger *slog.Logger,
	workflowService *services.Workflow,
	registry *registry.Registry,
) *API {
	return &API{
		logger:          logger,
		workflowService: workflowService,
		registry:        registry,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflowService, web.NewValidator(), a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowEngine API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

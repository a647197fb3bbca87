package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/ryxhub/flowengine/pkg/cmd"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/log"
	"github.com/ryxhub/flowengine/pkg/otelhelper"
	"github.com/ryxhub/flowengine/pkg/schedule"
	"github.com/ryxhub/flowengine/pkg/services"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9091
	shutdownTimeout = 30 * time.Second
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the API server and the workflow scheduler",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL: a directory, file://, postgres:// or redis://",
				Value:   "file://./data/workflows",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Nodes executed at once per run (0 for unlimited)",
				Value:   0,
				Sources: cli.EnvVars("CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export run traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("flowengine")
			logger.InfoContext(ctx, "Initializing FlowEngine")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			schedulerOpts := []engine.SchedulerOption{
				engine.WithConcurrency(command.Int("concurrency")),
				engine.WithSchedulerLogger(logger),
			}

			if command.Bool("otel-enabled") {
				tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "flowengine")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
				defer func() {
					if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
						logger.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()

				schedulerOpts = append(schedulerOpts, engine.WithTracer(tracer))
			}

			registry := cmd.NewRegistry(logger)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}
			defer func() {
				if err := persistence.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "flowengine", logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			if err := registerAuditHandlers(eventBus, logger); err != nil {
				return fmt.Errorf("failed to register event handlers: %w", err)
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return fmt.Errorf("failed to subscribe to events: %w", err)
			}

			workflowService := services.NewWorkflow(
				persistence,
				engine.NewScheduler(registry.Executors(), schedulerOpts...),
				services.WithPublisher(eventBus),
				services.WithLogger(logger),
			)

			cron := schedule.New(workflowService, workflowService, logger)
			if err := cron.Start(ctx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			app := NewAPI(logger, workflowService, registry).App()

			listenErr := make(chan error, 1)

			go func() {
				listenErr <- app.Listen(":"+strconv.Itoa(command.Int("port")), fiber.ListenConfig{
					DisableStartupMessage: true,
				})
			}()

			logger.InfoContext(ctx, "FlowEngine API listening", "port", command.Int("port"))

			select {
			case err = <-listenErr:
				logger.Error("API server stopped", "error", err)
			case <-ctx.Done():
				logger.Info("Shutting down gracefully...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			return errors.Join(
				err,
				app.ShutdownWithContext(shutdownCtx),
				cron.Stop(shutdownCtx),
				workflowService.Shutdown(shutdownCtx),
			)
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ryxhub/flowengine/pkg/cmd"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/log"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/persistence/file"
	"github.com/urfave/cli/v3"
)

var errRunFailed = errors.New("run did not succeed")

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Run a workflow document once and print the outcome",
		ArgsUsage: "<workflow.yaml|workflow.json>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Nodes executed at once (0 for unlimited)",
				Value:   0,
				Sources: cli.EnvVars("CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write statuses, logs and run history back to the document",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			path := command.Args().First()
			if path == "" {
				return errors.New("a workflow document is required")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := log.WithModule("flowengine")

			doc, err := file.ReadDocument(path)
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger)
			if err := registry.ValidateWorkflow(doc.Nodes); err != nil {
				return err
			}

			wf, err := engine.Load(doc, engine.WithLogger(logger))
			if err != nil {
				return err
			}

			scheduler := engine.NewScheduler(registry.Executors(),
				engine.WithConcurrency(command.Int("concurrency")),
				engine.WithSchedulerLogger(logger),
			)

			summary, err := scheduler.Execute(ctx, wf)
			if err != nil {
				return err
			}

			printSummary(os.Stdout, wf.Snapshot(), summary)

			if command.Bool("save") {
				if err := file.WriteDocument(path, wf.Snapshot()); err != nil {
					return err
				}
			}

			if summary.Outcome != models.RunOutcomeSuccess {
				return fmt.Errorf("%w: %s", errRunFailed, summary.Outcome)
			}

			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/ryxhub/flowengine/pkg/cmd"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/log"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/persistence/file"
	"github.com/ryxhub/flowengine/pkg/schedule"
	"github.com/urfave/cli/v3"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check a workflow document: graph, node configs and schedule",
		ArgsUsage: "<workflow.yaml|workflow.json>",
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			path := command.Args().First()
			if path == "" {
				return errors.New("a workflow document is required")
			}

			doc, err := file.ReadDocument(path)
			if err != nil {
				return err
			}

			report, err := validateDocument(doc, cmd.NewRegistry(log.WithModule("flowengine")))
			if err != nil {
				return err
			}

			printOrder(os.Stdout, doc, report.Order, report.Warnings)

			return nil
		},
	}
}

type nodeValidator interface {
	ValidateWorkflow(nodes []*models.WorkflowNode) error
}

func validateDocument(doc *models.Workflow, registry nodeValidator) (*engine.ValidationReport, error) {
	if doc.Schedule != "" {
		if err := schedule.Validate(doc.Schedule); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateWorkflow(doc.Nodes); err != nil {
		return nil, err
	}

	wf, err := engine.Load(doc)
	if err != nil {
		return nil, err
	}

	return wf.Validate()
}

package main

import (
	"context"
	"log/slog"

	"github.com/ryxhub/flowengine/pkg/eventbus"
	"github.com/ryxhub/flowengine/pkg/events"
)

// registerAuditHandlers logs run and status events as they come back from the bus.
func registerAuditHandlers(bus eventbus.EventBus, logger *slog.Logger) error {
	logger = logger.With("module", "audit")

	err := bus.Handle(events.RunStartedEvent, func(ctx context.Context, event eventbus.Event) error {
		started, ok := event.(*events.RunStarted)
		if !ok {
			return nil
		}

		logger.InfoContext(ctx, "Run started",
			"workflow_id", started.WorkflowID, "run_id", started.RunID, "order", started.Order)

		return nil
	})
	if err != nil {
		return err
	}

	err = bus.Handle(events.RunEndedEvent, func(ctx context.Context, event eventbus.Event) error {
		ended, ok := event.(*events.RunEnded)
		if !ok {
			return nil
		}

		logger.InfoContext(ctx, "Run ended",
			"workflow_id", ended.WorkflowID,
			"run_id", ended.RunID,
			"outcome", ended.Summary.Outcome,
			"failed", ended.Summary.Failed,
			"cancelled", ended.Summary.Cancelled)

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Handle(events.NodeStatusChangedEvent, func(ctx context.Context, event eventbus.Event) error {
		changed, ok := event.(*events.NodeStatusChanged)
		if !ok {
			return nil
		}

		logger.DebugContext(ctx, "Node status changed",
			"workflow_id", changed.WorkflowID,
			"run_id", changed.RunID,
			"node_id", changed.NodeID,
			"from", changed.From,
			"to", changed.To,
			"detail", changed.Detail)

		return nil
	})
}

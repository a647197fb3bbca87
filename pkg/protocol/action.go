// Package protocol defines the contracts between the engine's node types and the actions
// that perform their work.
package protocol

import (
	"context"
	"log/slog"
)

// ActionInput is what an action sees of the node it runs for.
type ActionInput struct {
	RunID      string
	WorkflowID string
	NodeID     string
	NodeName   string
	// Inputs holds the output of every direct predecessor, keyed by predecessor id.
	Inputs    map[string]map[string]any
	Variables map[string]any
}

// ActionResult is the output handed to downstream nodes plus the lines to append to the
// node's log.
type ActionResult struct {
	Output map[string]any
	Logs   []string
}

type Action interface {
	Execute(ctx context.Context, input ActionInput, logger *slog.Logger) (ActionResult, error)
}

type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	Name() string
	Description() string
	// Schema returns the JSON schema node configs for this action must satisfy.
	Schema() map[string]any
}

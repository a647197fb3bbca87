package engine

import (
	"context"
	"fmt"

	"github.com/ryxhub/flowengine/pkg/models"
)

// Task is one unit of node work handed to an Executor.
type Task struct {
	RunID      string
	WorkflowID string
	Node       *models.WorkflowNode
	// Inputs holds the output of every direct predecessor, keyed by predecessor id.
	Inputs    map[string]map[string]any
	Variables map[string]any
}

// Result is what a node's work produced. Logs are appended to the node before it turns terminal.
type Result struct {
	Output map[string]any
	Logs   []string
	Detail string
}

// Executor performs the work of a node. The engine does not know what a trigger, agent, tool
// or output node does; the surrounding application supplies one Executor per node type.
// A returned error ends the node in error status; it never aborts the run.
type Executor interface {
	Execute(ctx context.Context, task Task) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task Task) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, task Task) (Result, error) {
	return f(ctx, task)
}

// Executors resolves the executor of each node type.
type Executors map[models.NodeType]Executor

func (e Executors) lookup(nodeType models.NodeType) (Executor, error) {
	executor, ok := e[nodeType]
	if !ok || executor == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExecutor, nodeType)
	}

	return executor, nil
}

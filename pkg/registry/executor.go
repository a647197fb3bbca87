package registry

import (
	"context"
	"fmt"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/protocol"
)

// Executor returns an engine.Executor that resolves, validates and runs each node's action.
func (r *Registry) Executor() engine.Executor {
	return engine.ExecutorFunc(r.execute)
}

// Executors returns the registry's executor for every node type.
func (r *Registry) Executors() engine.Executors {
	executor := r.Executor()
	executors := make(engine.Executors, len(models.NodeTypes))

	for _, nodeType := range models.NodeTypes {
		executors[nodeType] = executor
	}

	return executors
}

func (r *Registry) execute(ctx context.Context, task engine.Task) (engine.Result, error) {
	node := task.Node

	if err := r.ValidateNode(node); err != nil {
		return engine.Result{}, err
	}

	actionID, err := r.ActionID(node)
	if err != nil {
		return engine.Result{}, err
	}

	action, err := r.CreateAction(actionID, node.Config)
	if err != nil {
		return engine.Result{}, fmt.Errorf("create action %s: %w", actionID, err)
	}

	logger := r.logger.With("node_id", node.ID, "run_id", task.RunID, "action", actionID)

	result, err := action.Execute(ctx, protocol.ActionInput{
		RunID:      task.RunID,
		WorkflowID: task.WorkflowID,
		NodeID:     node.ID,
		NodeName:   node.Name,
		Inputs:     task.Inputs,
		Variables:  task.Variables,
	}, logger)

	return engine.Result{Output: result.Output, Logs: result.Logs}, err
}

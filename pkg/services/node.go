package services

import (
	"context"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
)

// CreateNodeRequest represents the request to create a new workflow node.
type CreateNodeRequest struct {
	ID     string
	Type   models.NodeType
	Name   string
	Config map[string]any
}

// UpdateNodeRequest represents the request to update an existing workflow node. Config, when
// set, replaces the whole configuration.
type UpdateNodeRequest struct {
	Name   *string
	Config map[string]any
}

// CreateNode creates a new node in the specified workflow.
func (w *Workflow) CreateNode(ctx context.Context, workflowID string, req CreateNodeRequest) (*models.WorkflowNode, error) {
	var id string

	wf, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		var err error

		id, err = wf.AddNode(engine.NodeSpec{ID: req.ID, Type: req.Type, Name: req.Name, Config: req.Config})

		return err
	})
	if err != nil {
		return nil, err
	}

	return wf.GetNode(id)
}

// GetNode returns a node of the workflow.
func (w *Workflow) GetNode(ctx context.Context, workflowID, nodeID string) (*models.WorkflowNode, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wf.GetNode(nodeID)
}

// Nodes lists the nodes of a workflow in creation order.
func (w *Workflow) Nodes(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wf.Nodes(), nil
}

// UpdateNode renames a node or replaces its configuration.
func (w *Workflow) UpdateNode(ctx context.Context, workflowID, nodeID string, req UpdateNodeRequest) (*models.WorkflowNode, error) {
	wf, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		if req.Name != nil {
			if err := wf.RenameNode(nodeID, *req.Name); err != nil {
				return err
			}
		}

		if req.Config != nil {
			return wf.UpdateConfig(nodeID, req.Config)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return wf.GetNode(nodeID)
}

// DeleteNode removes a node that no connection references.
func (w *Workflow) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	_, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		return wf.RemoveNode(nodeID)
	})

	return err
}

// ResetNode returns a finished node to idle and clears its logs.
func (w *Workflow) ResetNode(ctx context.Context, workflowID, nodeID string) (*models.WorkflowNode, error) {
	wf, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		return wf.ResetNode(ctx, nodeID)
	})
	if err != nil {
		return nil, err
	}

	return wf.GetNode(nodeID)
}

// NodeHistory returns the run records of a node, oldest first.
func (w *Workflow) NodeHistory(ctx context.Context, workflowID, nodeID string) ([]models.RunRecord, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wf.History(nodeID)
}

// CreateConnection adds the dependency edge from -> to.
func (w *Workflow) CreateConnection(ctx context.Context, workflowID, from, to string) (models.Connection, error) {
	var id string

	_, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		var err error

		id, err = wf.AddConnection(from, to)

		return err
	})
	if err != nil {
		return models.Connection{}, err
	}

	return models.Connection{ID: id, From: from, To: to}, nil
}

// Connections lists the edges of a workflow in insertion order.
func (w *Workflow) Connections(ctx context.Context, workflowID string) ([]models.Connection, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wf.Connections(), nil
}

// DeleteConnection removes an edge.
func (w *Workflow) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	_, err := w.mutate(ctx, workflowID, func(wf *engine.Workflow) error {
		return wf.RemoveConnection(connectionID)
	})

	return err
}

// Order returns the validation report of a workflow: its topological order plus warnings.
func (w *Workflow) Order(ctx context.Context, workflowID string) (*engine.ValidationReport, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wf.Validate()
}

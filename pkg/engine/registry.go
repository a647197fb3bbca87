package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/events"
	"github.com/ryxhub/flowengine/pkg/models"
)

// NodeSpec describes a node to add. ID is optional; an empty ID gets a generated one.
type NodeSpec struct {
	ID     string
	Type   models.NodeType
	Name   string
	Config map[string]any
}

// AddNode creates a node with status idle, empty logs and no runs.
func (w *Workflow) AddNode(spec NodeSpec) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return "", &NodeError{Op: "AddNode", NodeID: spec.ID, Err: ErrWorkflowBusy}
	}

	if !spec.Type.Valid() {
		return "", &NodeError{
			Op:     "AddNode",
			NodeID: spec.ID,
			Err:    fmt.Errorf("%w: unknown type %q", ErrInvalidNode, spec.Type),
		}
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := w.byID[id]; exists {
		return "", &NodeError{Op: "AddNode", NodeID: id, Err: ErrDuplicateID}
	}

	name := spec.Name
	if name == "" {
		name = string(spec.Type)
	}

	w.insertNode(&node{
		id:        id,
		typ:       spec.Type,
		name:      name,
		status:    models.NodeStatusIdle,
		config:    cloneConfig(spec.Config),
		createdAt: w.now(),
	})
	w.touch()

	w.logger.Debug("Node added", "node_id", id, "node_type", spec.Type)

	return id, nil
}

func (w *Workflow) insertNode(n *node) {
	w.seq++
	n.seq = w.seq
	w.nodes = append(w.nodes, n)
	w.byID[n.id] = n
}

// GetNode returns a copy of the node, including its run history.
func (w *Workflow) GetNode(id string) (*models.WorkflowNode, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n, ok := w.byID[id]
	if !ok {
		return nil, &NodeError{Op: "GetNode", NodeID: id, Err: ErrNotFound}
	}

	return w.view(n), nil
}

// Nodes returns copies of every node in creation order.
func (w *Workflow) Nodes() []*models.WorkflowNode {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*models.WorkflowNode, 0, len(w.nodes))
	for _, n := range w.nodes {
		out = append(out, w.view(n))
	}

	return out
}

// RemoveNode deletes a node. Connections are never removed implicitly: a node still
// referenced by one is rejected with ErrNodeInUse.
func (w *Workflow) RemoveNode(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return &NodeError{Op: "RemoveNode", NodeID: id, Err: ErrWorkflowBusy}
	}

	if _, ok := w.byID[id]; !ok {
		return &NodeError{Op: "RemoveNode", NodeID: id, Err: ErrNotFound}
	}

	for _, c := range w.connections {
		if c.From == id || c.To == id {
			return &NodeError{
				Op:     "RemoveNode",
				NodeID: id,
				Err:    fmt.Errorf("%w: referenced by connection %s", ErrNodeInUse, c.ID),
			}
		}
	}

	w.nodes = slices.DeleteFunc(w.nodes, func(n *node) bool { return n.id == id })
	delete(w.byID, id)
	w.ledger.forget(id)
	w.touch()

	return nil
}

// UpdateConfig replaces the node's config wholesale. Callers merge before calling.
func (w *Workflow) UpdateConfig(id string, config map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return &NodeError{Op: "UpdateConfig", NodeID: id, Err: ErrWorkflowBusy}
	}

	n, ok := w.byID[id]
	if !ok {
		return &NodeError{Op: "UpdateConfig", NodeID: id, Err: ErrNotFound}
	}

	n.config = cloneConfig(config)
	w.touch()

	return nil
}

func (w *Workflow) RenameNode(id, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return &NodeError{Op: "RenameNode", NodeID: id, Err: ErrWorkflowBusy}
	}

	n, ok := w.byID[id]
	if !ok {
		return &NodeError{Op: "RenameNode", NodeID: id, Err: ErrNotFound}
	}

	if name == "" {
		return &NodeError{Op: "RenameNode", NodeID: id, Err: fmt.Errorf("%w: empty name", ErrInvalidNode)}
	}

	n.name = name
	w.touch()

	return nil
}

// ResetNode is the explicit reset: the node goes back to idle and its logs are cleared.
// Run history is kept.
func (w *Workflow) ResetNode(ctx context.Context, id string) error {
	w.mu.Lock()

	if w.running {
		w.mu.Unlock()

		return &NodeError{Op: "ResetNode", NodeID: id, Err: ErrWorkflowBusy}
	}

	n, ok := w.byID[id]
	if !ok {
		w.mu.Unlock()

		return &NodeError{Op: "ResetNode", NodeID: id, Err: ErrNotFound}
	}

	if n.status != models.NodeStatusIdle {
		if err := w.transition(n, models.NodeStatusIdle, stepInfo{}); err != nil {
			w.mu.Unlock()

			return err
		}
	}

	n.logs = nil
	w.touch()
	w.mu.Unlock()

	w.flush(ctx)

	return nil
}

// History returns the node's past executions, oldest first.
func (w *Workflow) History(id string) ([]models.RunRecord, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.byID[id]; !ok {
		return nil, &NodeError{Op: "History", NodeID: id, Err: ErrNotFound}
	}

	return w.ledger.History(id), nil
}

func (w *Workflow) view(n *node) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:        n.id,
		Type:      n.typ,
		Name:      n.name,
		Status:    n.status,
		Config:    cloneConfig(n.config),
		Logs:      append([]string(nil), n.logs...),
		Runs:      w.ledger.History(n.id),
		CreatedAt: n.createdAt,
	}
}

// appendLog adds a line to the node and queues the matching event.
func (w *Workflow) appendLog(n *node, runID, line string) {
	n.logs = append(n.logs, line)

	event := events.NodeLogAppended{
		BaseEvent: w.baseEvent(events.NodeLogAppendedEvent, runID),
		NodeID:    n.id,
		Line:      line,
	}
	w.emit(event)
}

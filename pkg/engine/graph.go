package engine

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/models"
)

// AddConnection adds the edge "to depends on from". The edge is rejected with ErrCycle when to
// already reaches from, so the graph stays acyclic; on any error the graph is unchanged.
func (w *Workflow) AddConnection(from, to string) (string, error) {
	return w.AddConnectionWithID("", from, to)
}

// AddConnectionWithID is AddConnection with a caller-supplied id.
func (w *Workflow) AddConnectionWithID(id, from, to string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	const op = "AddConnection"

	if w.running {
		return "", &ConnectionError{Op: op, ConnectionID: id, From: from, To: to, Err: ErrWorkflowBusy}
	}

	if err := w.checkEndpoints(op, from, to); err != nil {
		return "", err
	}

	for _, c := range w.connections {
		if id != "" && c.ID == id {
			return "", &ConnectionError{Op: op, ConnectionID: id, Err: ErrDuplicateID}
		}

		if c.From == from && c.To == to {
			return "", &ConnectionError{
				Op: op, From: from, To: to,
				Err: fmt.Errorf("%w: edge already exists as %s", ErrDuplicateID, c.ID),
			}
		}
	}

	if from == to || w.reaches(to, from) {
		return "", &ConnectionError{Op: op, From: from, To: to, Err: &CycleError{Nodes: []string{from, to}}}
	}

	if id == "" {
		id = uuid.NewString()
	}

	w.connections = append(w.connections, &models.Connection{ID: id, From: from, To: to})
	w.touch()

	return id, nil
}

func (w *Workflow) checkEndpoints(op, from, to string) error {
	for _, endpoint := range []string{from, to} {
		if _, ok := w.byID[endpoint]; !ok {
			return &ConnectionError{
				Op: op, From: from, To: to,
				Err: fmt.Errorf("%w: node %s", ErrNotFound, endpoint),
			}
		}
	}

	return nil
}

// RemoveConnection deletes an edge by id.
func (w *Workflow) RemoveConnection(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return &ConnectionError{Op: "RemoveConnection", ConnectionID: id, Err: ErrWorkflowBusy}
	}

	idx := slices.IndexFunc(w.connections, func(c *models.Connection) bool { return c.ID == id })
	if idx < 0 {
		return &ConnectionError{Op: "RemoveConnection", ConnectionID: id, Err: ErrNotFound}
	}

	w.connections = slices.Delete(w.connections, idx, idx+1)
	w.touch()

	return nil
}

// Connections returns copies of every connection in insertion order.
func (w *Workflow) Connections() []models.Connection {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Connection, 0, len(w.connections))
	for _, c := range w.connections {
		out = append(out, *c)
	}

	return out
}

// TopologicalOrder linearizes the graph. Ties are broken by node creation order so the
// result is reproducible across runs.
func (w *Workflow) TopologicalOrder() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.topologicalOrder()
}

// ValidationReport is the outcome of Validate. Warnings never block a run.
type ValidationReport struct {
	Order    []string `json:"order"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate re-checks that the graph is acyclic and reports advisory findings, such as
// trigger nodes with inbound connections.
func (w *Workflow) Validate() (*ValidationReport, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	order, err := w.topologicalOrder()
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{Order: order}

	for _, c := range w.connections {
		if target := w.byID[c.To]; target.typ == models.NodeTypeTrigger {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("trigger node %s has inbound connection %s from %s", c.To, c.ID, c.From))
		}
	}

	return report, nil
}

func (w *Workflow) topologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(w.nodes))
	successors := w.successors()

	for _, c := range w.connections {
		indegree[c.To]++
	}

	bySeq := func(a, b *node) int { return a.seq - b.seq }

	ready := make([]*node, 0, len(w.nodes))

	for _, n := range w.nodes {
		if indegree[n.id] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(w.nodes))

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n.id)

		for _, next := range successors[n.id] {
			indegree[next.id]--
			if indegree[next.id] == 0 {
				pos, _ := slices.BinarySearchFunc(ready, next, bySeq)
				ready = slices.Insert(ready, pos, next)
			}
		}
	}

	if len(order) != len(w.nodes) {
		blocked := make([]string, 0, len(w.nodes)-len(order))

		for _, n := range w.nodes {
			if indegree[n.id] > 0 {
				blocked = append(blocked, n.id)
			}
		}

		return nil, &CycleError{Nodes: blocked}
	}

	return order, nil
}

// successors maps each node id to its dependents, one entry per connection.
func (w *Workflow) successors() map[string][]*node {
	out := make(map[string][]*node, len(w.nodes))

	for _, c := range w.connections {
		out[c.From] = append(out[c.From], w.byID[c.To])
	}

	return out
}

// predecessors maps each node id to the ids it depends on.
func (w *Workflow) predecessors() map[string][]string {
	out := make(map[string][]string, len(w.nodes))

	for _, c := range w.connections {
		out[c.To] = append(out[c.To], c.From)
	}

	return out
}

// reaches reports whether a path from -> ... -> to exists.
func (w *Workflow) reaches(from, to string) bool {
	successors := w.successors()
	visited := make(map[string]bool, len(w.nodes))
	stack := []string{from}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == to {
			return true
		}

		if visited[current] {
			continue
		}

		visited[current] = true

		for _, next := range successors[current] {
			stack = append(stack, next.id)
		}
	}

	return false
}

package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/events"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.Event(nil), p.events...)
}

// callTracker records which nodes had their work invoked, in invocation order.
type callTracker struct {
	mu    sync.Mutex
	calls []string
}

func (c *callTracker) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, id)
}

func (c *callTracker) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.calls...)
}

func (c *callTracker) called(id string) bool {
	for _, call := range c.list() {
		if call == id {
			return true
		}
	}

	return false
}

// succeedAll returns executors for every node type that record the call and succeed.
func succeedAll(tracker *callTracker) engine.Executors {
	fn := engine.ExecutorFunc(func(_ context.Context, task engine.Task) (engine.Result, error) {
		tracker.add(task.Node.ID)

		return engine.Result{Output: map[string]any{"from": task.Node.ID}}, nil
	})

	return engine.Executors{
		models.NodeTypeTrigger: fn,
		models.NodeTypeAgent:   fn,
		models.NodeTypeTool:    fn,
		models.NodeTypeOutput:  fn,
	}
}

// byNode dispatches to a per-node function, falling back to success.
func byNode(tracker *callTracker, overrides map[string]engine.ExecutorFunc) engine.Executors {
	fn := engine.ExecutorFunc(func(ctx context.Context, task engine.Task) (engine.Result, error) {
		tracker.add(task.Node.ID)

		if override, ok := overrides[task.Node.ID]; ok {
			return override(ctx, task)
		}

		return engine.Result{Output: map[string]any{"from": task.Node.ID}}, nil
	})

	return engine.Executors{
		models.NodeTypeTrigger: fn,
		models.NodeTypeAgent:   fn,
		models.NodeTypeTool:    fn,
		models.NodeTypeOutput:  fn,
	}
}

type nodeDef struct {
	id  string
	typ models.NodeType
}

// buildWorkflow adds nodes in the given order and then the edges as [from, to] pairs.
func buildWorkflow(t *testing.T, nodes []nodeDef, edges [][2]string, opts ...engine.Option) *engine.Workflow {
	t.Helper()

	wf := engine.New("wf-test", "Test workflow", opts...)

	for _, n := range nodes {
		_, err := wf.AddNode(engine.NodeSpec{ID: n.id, Type: n.typ, Name: n.id})
		require.NoError(t, err)
	}

	for _, e := range edges {
		_, err := wf.AddConnection(e[0], e[1])
		require.NoError(t, err)
	}

	return wf
}

// diamond is T1 -> A1 -> O1 and T1 -> A2 -> O1.
func diamond(t *testing.T, opts ...engine.Option) *engine.Workflow {
	t.Helper()

	return buildWorkflow(t,
		[]nodeDef{
			{"T1", models.NodeTypeTrigger},
			{"A1", models.NodeTypeAgent},
			{"A2", models.NodeTypeAgent},
			{"O1", models.NodeTypeOutput},
		},
		[][2]string{{"T1", "A1"}, {"T1", "A2"}, {"A1", "O1"}, {"A2", "O1"}},
		opts...,
	)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	return ctx
}

func status(t *testing.T, wf *engine.Workflow, id string) models.NodeStatus {
	t.Helper()

	n, err := wf.GetNode(id)
	require.NoError(t, err)

	return n.Status
}

package engine_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_AddNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    engine.NodeSpec
		prepare func(wf *engine.Workflow)
		wantErr error
	}{
		{
			name: "generated id",
			spec: engine.NodeSpec{Type: models.NodeTypeAgent, Name: "Summarizer"},
		},
		{
			name: "caller supplied id",
			spec: engine.NodeSpec{ID: "agent-1", Type: models.NodeTypeAgent, Name: "Summarizer"},
		},
		{
			name: "colliding caller id",
			spec: engine.NodeSpec{ID: "agent-1", Type: models.NodeTypeAgent, Name: "Again"},
			prepare: func(wf *engine.Workflow) {
				_, _ = wf.AddNode(engine.NodeSpec{ID: "agent-1", Type: models.NodeTypeTool})
			},
			wantErr: engine.ErrDuplicateID,
		},
		{
			name:    "unknown type",
			spec:    engine.NodeSpec{Type: "router", Name: "Router"},
			wantErr: engine.ErrInvalidNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := engine.New("wf", "Test")
			if tt.prepare != nil {
				tt.prepare(wf)
			}

			id, err := wf.AddNode(tt.spec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, id)

			if tt.spec.ID != "" {
				assert.Equal(t, tt.spec.ID, id)
			}

			node, err := wf.GetNode(id)
			require.NoError(t, err)
			assert.Equal(t, models.NodeStatusIdle, node.Status)
			assert.Equal(t, tt.spec.Name, node.Name)
			assert.Empty(t, node.Logs)
			assert.Empty(t, node.Runs)
		})
	}
}

func TestWorkflow_GetNode_NotFound(t *testing.T) {
	t.Parallel()

	wf := engine.New("wf", "Test")

	_, err := wf.GetNode("missing")
	require.ErrorIs(t, err, engine.ErrNotFound)
	assert.True(t, engine.IsNotFound(err))
}

func TestWorkflow_RemoveNode(t *testing.T) {
	t.Parallel()

	wf := buildWorkflow(t,
		[]nodeDef{{"T1", models.NodeTypeTrigger}, {"A1", models.NodeTypeAgent}},
		[][2]string{{"T1", "A1"}},
	)

	err := wf.RemoveNode("A1")
	require.ErrorIs(t, err, engine.ErrNodeInUse)
	assert.Len(t, wf.Nodes(), 2)
	assert.Len(t, wf.Connections(), 1, "removal must not delete connections implicitly")

	require.NoError(t, wf.RemoveConnection(wf.Connections()[0].ID))
	require.NoError(t, wf.RemoveNode("A1"))

	_, err = wf.GetNode("A1")
	require.ErrorIs(t, err, engine.ErrNotFound)

	require.ErrorIs(t, wf.RemoveNode("A1"), engine.ErrNotFound)
}

func TestWorkflow_UpdateConfig_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	wf := engine.New("wf", "Test")
	id, err := wf.AddNode(engine.NodeSpec{
		Type:   models.NodeTypeTool,
		Config: map[string]any{"url": "http://a", "method": "GET"},
	})
	require.NoError(t, err)

	replacement := map[string]any{"url": "http://b", "nested": map[string]any{"k": "v"}}
	require.NoError(t, wf.UpdateConfig(id, replacement))

	// Mutating the caller's map afterwards must not leak into the node.
	replacement["url"] = "http://c"
	replacement["nested"].(map[string]any)["k"] = "changed"

	node, err := wf.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "http://b", "nested": map[string]any{"k": "v"}}, node.Config)
	assert.NotContains(t, node.Config, "method")

	require.ErrorIs(t, wf.UpdateConfig("missing", nil), engine.ErrNotFound)
}

func TestWorkflow_RenameNode(t *testing.T) {
	t.Parallel()

	wf := engine.New("wf", "Test")
	id, err := wf.AddNode(engine.NodeSpec{Type: models.NodeTypeOutput, Name: "Out"})
	require.NoError(t, err)

	require.NoError(t, wf.RenameNode(id, "Report"))
	require.ErrorIs(t, wf.RenameNode(id, ""), engine.ErrInvalidNode)

	node, err := wf.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "Report", node.Name)
}

func TestWorkflow_AddConnection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "valid edge", from: "A2", to: "O1"},
		{name: "unknown source", from: "X", to: "O1", wantErr: engine.ErrNotFound},
		{name: "unknown target", from: "T1", to: "X", wantErr: engine.ErrNotFound},
		{name: "self loop", from: "A1", to: "A1", wantErr: engine.ErrCycle},
		{name: "direct back edge", from: "A1", to: "T1", wantErr: engine.ErrCycle},
		{name: "transitive back edge", from: "O1", to: "T1", wantErr: engine.ErrCycle},
		{name: "duplicate edge", from: "T1", to: "A1", wantErr: engine.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := buildWorkflow(t,
				[]nodeDef{
					{"T1", models.NodeTypeTrigger},
					{"A1", models.NodeTypeAgent},
					{"A2", models.NodeTypeAgent},
					{"O1", models.NodeTypeOutput},
				},
				[][2]string{{"T1", "A1"}, {"A1", "O1"}},
			)
			before := wf.Connections()

			id, err := wf.AddConnection(tt.from, tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
				assert.Equal(t, before, wf.Connections(), "graph must be unchanged after a failed add")

				return
			}

			require.NoError(t, err)
			assert.Len(t, wf.Connections(), len(before)+1)
		})
	}
}

func TestWorkflow_RemoveConnection_NotFound(t *testing.T) {
	t.Parallel()

	wf := engine.New("wf", "Test")
	require.ErrorIs(t, wf.RemoveConnection("nope"), engine.ErrNotFound)
}

func TestWorkflow_TopologicalOrder_Diamond(t *testing.T) {
	t.Parallel()

	order, err := diamond(t).TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "A1", "A2", "O1"}, order)
}

func TestWorkflow_TopologicalOrder_TiesFollowCreationOrder(t *testing.T) {
	t.Parallel()

	wf := buildWorkflow(t,
		[]nodeDef{
			{"c", models.NodeTypeTool},
			{"b", models.NodeTypeTool},
			{"a", models.NodeTypeTool},
			{"z", models.NodeTypeOutput},
		},
		[][2]string{{"a", "z"}},
	)

	for range 3 {
		order, err := wf.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a", "z"}, order)
	}
}

func TestWorkflow_TopologicalOrder_RespectsEveryEdge(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for round := range 25 {
		wf := engine.New(fmt.Sprintf("wf-%d", round), "Random")
		size := 2 + rng.Intn(18)

		ids := make([]string, size)
		for i := range ids {
			id, err := wf.AddNode(engine.NodeSpec{ID: fmt.Sprintf("n%02d", i), Type: models.NodeTypeTool})
			require.NoError(t, err)

			ids[i] = id
		}

		// Add random edges in both directions; the cycle guard rejects the closing ones.
		for range size * 2 {
			from, to := ids[rng.Intn(size)], ids[rng.Intn(size)]
			if _, err := wf.AddConnection(from, to); err != nil {
				require.True(t, engine.IsCycle(err) || engine.IsDuplicateID(err), "unexpected error: %v", err)
			}
		}

		order, err := wf.TopologicalOrder()
		require.NoError(t, err)
		require.Len(t, order, size)

		position := make(map[string]int, size)
		for i, id := range order {
			position[id] = i
		}

		for _, c := range wf.Connections() {
			assert.Less(t, position[c.From], position[c.To], "edge %s -> %s violated", c.From, c.To)
		}
	}
}

func TestLoad_CyclicDocumentIsRefusedAtRun(t *testing.T) {
	t.Parallel()

	doc := &models.Workflow{
		ID:   "wf-cyclic",
		Name: "Hand edited",
		Nodes: []*models.WorkflowNode{
			{ID: "T1", Type: models.NodeTypeTrigger, Name: "T1"},
			{ID: "A1", Type: models.NodeTypeAgent, Name: "A1"},
			{ID: "A2", Type: models.NodeTypeAgent, Name: "A2", Status: models.NodeStatusSuccess},
		},
		Connections: []*models.Connection{
			{ID: "c1", From: "T1", To: "A1"},
			{ID: "c2", From: "A1", To: "A2"},
			{ID: "c3", From: "A2", To: "A1"},
		},
	}

	wf, err := engine.Load(doc)
	require.NoError(t, err)

	_, err = wf.TopologicalOrder()
	require.ErrorIs(t, err, engine.ErrCycle)

	var cycleErr *engine.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"A1", "A2"}, cycleErr.Nodes)

	tracker := &callTracker{}
	scheduler := engine.NewScheduler(succeedAll(tracker))

	_, err = scheduler.Start(context.Background(), wf)
	require.ErrorIs(t, err, engine.ErrCycle)
	assert.False(t, wf.IsRunning())
	assert.Empty(t, tracker.list())
	assert.Equal(t, models.NodeStatusIdle, status(t, wf, "T1"))
	assert.Equal(t, models.NodeStatusSuccess, status(t, wf, "A2"), "no node status may change on a refused run")
}

func TestLoad_RejectsBrokenDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     *models.Workflow
		wantErr error
	}{
		{
			name:    "nil document",
			doc:     nil,
			wantErr: engine.ErrInvalidNode,
		},
		{
			name: "unknown node type",
			doc: &models.Workflow{ID: "wf", Name: "wf", Nodes: []*models.WorkflowNode{
				{ID: "n1", Type: "router", Name: "n1"},
			}},
			wantErr: engine.ErrInvalidNode,
		},
		{
			name: "duplicate node id",
			doc: &models.Workflow{ID: "wf", Name: "wf", Nodes: []*models.WorkflowNode{
				{ID: "n1", Type: models.NodeTypeTool, Name: "n1"},
				{ID: "n1", Type: models.NodeTypeTool, Name: "again"},
			}},
			wantErr: engine.ErrDuplicateID,
		},
		{
			name: "dangling connection",
			doc: &models.Workflow{
				ID: "wf", Name: "wf",
				Nodes:       []*models.WorkflowNode{{ID: "n1", Type: models.NodeTypeTool, Name: "n1"}},
				Connections: []*models.Connection{{ID: "c1", From: "n1", To: "ghost"}},
			},
			wantErr: engine.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := engine.Load(tt.doc)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkflow_Validate_WarnsOnTriggerWithInboundEdge(t *testing.T) {
	t.Parallel()

	wf := buildWorkflow(t,
		[]nodeDef{{"T1", models.NodeTypeTrigger}, {"T2", models.NodeTypeTrigger}},
		[][2]string{{"T1", "T2"}},
	)

	report, err := wf.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, report.Order)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "T2")
}

func TestWorkflow_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	wf := diamond(t)
	require.NoError(t, wf.UpdateConfig("A1", map[string]any{"prompt": "hi"}))

	_, err := engine.NewScheduler(succeedAll(&callTracker{})).Execute(waitCtx(t), wf)
	require.NoError(t, err)

	doc := wf.Snapshot()
	require.Len(t, doc.Nodes, 4)
	require.Len(t, doc.Connections, 4)

	loaded, err := engine.Load(doc)
	require.NoError(t, err)

	history, err := loaded.History("A1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.RunOutcomeSuccess, history[0].Outcome)

	node, err := loaded.GetNode("A1")
	require.NoError(t, err)
	assert.Equal(t, "hi", node.Config["prompt"])
	assert.Equal(t, models.NodeStatusSuccess, node.Status)
	assert.NotEmpty(t, node.Logs)

	order, err := loaded.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "A1", "A2", "O1"}, order)
}

func TestWorkflow_ResetNode_ClearsLogsKeepsHistory(t *testing.T) {
	t.Parallel()

	wf := diamond(t)

	_, err := engine.NewScheduler(succeedAll(&callTracker{})).Execute(waitCtx(t), wf)
	require.NoError(t, err)

	require.NoError(t, wf.ResetNode(context.Background(), "A1"))

	node, err := wf.GetNode("A1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusIdle, node.Status)
	assert.Empty(t, node.Logs)
	assert.Len(t, node.Runs, 1)
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	legal := map[[2]models.NodeStatus]bool{
		{models.NodeStatusIdle, models.NodeStatusRunning}:      true,
		{models.NodeStatusIdle, models.NodeStatusError}:        true,
		{models.NodeStatusRunning, models.NodeStatusSuccess}:   true,
		{models.NodeStatusRunning, models.NodeStatusError}:     true,
		{models.NodeStatusRunning, models.NodeStatusCancelled}: true,
		{models.NodeStatusSuccess, models.NodeStatusIdle}:      true,
		{models.NodeStatusError, models.NodeStatusIdle}:        true,
		{models.NodeStatusCancelled, models.NodeStatusIdle}:    true,
	}

	all := []models.NodeStatus{
		models.NodeStatusIdle,
		models.NodeStatusRunning,
		models.NodeStatusSuccess,
		models.NodeStatusError,
		models.NodeStatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]models.NodeStatus{from, to}], engine.CanTransition(from, to),
				"%s -> %s", from, to)
		}
	}
}

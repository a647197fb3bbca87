package registry_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ryxhub/flowengine/pkg/actions/httprequest"
	logaction "github.com/ryxhub/flowengine/pkg/actions/log"
	"github.com/ryxhub/flowengine/pkg/actions/passthrough"
	"github.com/ryxhub/flowengine/pkg/actions/transform"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(passthrough.NewActionFactory())
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())

	reg.SetDefault(models.NodeTypeTrigger, "passthrough")
	reg.SetDefault(models.NodeTypeAgent, "http_request")
	reg.SetDefault(models.NodeTypeTool, "http_request")
	reg.SetDefault(models.NodeTypeOutput, "log")

	return reg
}

func TestRegistry_ActionID(t *testing.T) {
	t.Parallel()

	reg := newRegistry()

	tests := []struct {
		name     string
		node     *models.WorkflowNode
		expected string
		wantErr  error
	}{
		{
			name:     "type default",
			node:     &models.WorkflowNode{ID: "A1", Type: models.NodeTypeAgent},
			expected: "http_request",
		},
		{
			name: "config override",
			node: &models.WorkflowNode{
				ID: "A1", Type: models.NodeTypeAgent,
				Config: map[string]any{"action": "transform"},
			},
			expected: "transform",
		},
		{
			name:    "no default",
			node:    &models.WorkflowNode{ID: "X", Type: "custom"},
			wantErr: registry.ErrActionNotRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := reg.ActionID(tt.node)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestRegistry_ValidateNode(t *testing.T) {
	t.Parallel()

	reg := newRegistry()

	tests := []struct {
		name    string
		node    *models.WorkflowNode
		wantErr error
	}{
		{
			name: "valid http config",
			node: &models.WorkflowNode{ID: "A1", Type: models.NodeTypeTool, Config: map[string]any{
				"url": "https://example.com", "method": "POST", "timeout": 10,
			}},
		},
		{
			name:    "missing required url",
			node:    &models.WorkflowNode{ID: "A1", Type: models.NodeTypeTool, Config: map[string]any{}},
			wantErr: registry.ErrInvalidConfig,
		},
		{
			name: "wrong field type",
			node: &models.WorkflowNode{ID: "O1", Type: models.NodeTypeOutput, Config: map[string]any{
				"message": 42,
			}},
			wantErr: registry.ErrInvalidConfig,
		},
		{
			name: "unknown action",
			node: &models.WorkflowNode{ID: "A1", Type: models.NodeTypeAgent, Config: map[string]any{
				"action": "llm",
			}},
			wantErr: registry.ErrActionNotRegistered,
		},
		{
			name: "trigger without config",
			node: &models.WorkflowNode{ID: "T1", Type: models.NodeTypeTrigger},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := reg.ValidateNode(tt.node)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestRegistry_Components(t *testing.T) {
	t.Parallel()

	components := newRegistry().Components()
	require.Len(t, components, 4)

	ids := make([]string, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, []string{"http_request", "log", "passthrough", "transform"}, ids)
	assert.Equal(t, []string{"agent", "tool"}, components[0].DefaultFor)
	assert.Empty(t, components[3].DefaultFor)
	assert.NotEmpty(t, components[0].Schema)
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	message, ok := newRegistry().HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "4 actions registered", message)

	partial := registry.NewRegistry(slog.Default())
	partial.RegisterAction(passthrough.NewActionFactory())
	partial.SetDefault(models.NodeTypeTrigger, "passthrough")
	partial.SetDefault(models.NodeTypeOutput, "log")

	message, ok = partial.HealthCheck()
	assert.False(t, ok)
	assert.Contains(t, message, "agent")
	assert.Contains(t, message, "output")
	assert.NotContains(t, message, "trigger")
}

func TestRegistry_ExecutorsRunWorkflow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"summary": "` + request.URL.Query().Get("topic") + ` digest"}`))
	}))
	defer server.Close()

	wf := engine.New("wf-registry", "Digest")
	_, err := wf.AddNode(engine.NodeSpec{ID: "T1", Type: models.NodeTypeTrigger, Config: map[string]any{
		"payload": map[string]any{"topic": "infra"},
	}})
	require.NoError(t, err)
	_, err = wf.AddNode(engine.NodeSpec{ID: "A1", Type: models.NodeTypeAgent, Config: map[string]any{
		"url": server.URL + "/summarize?topic={{ .inputs.T1.topic }}",
	}})
	require.NoError(t, err)
	_, err = wf.AddNode(engine.NodeSpec{ID: "O1", Type: models.NodeTypeOutput, Config: map[string]any{
		"message": "Digest: {{ .inputs.A1.body.summary }}",
	}})
	require.NoError(t, err)

	_, err = wf.AddConnection("T1", "A1")
	require.NoError(t, err)
	_, err = wf.AddConnection("A1", "O1")
	require.NoError(t, err)

	summary, err := engine.NewScheduler(newRegistry().Executors()).Execute(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, models.RunOutcomeSuccess, summary.Outcome)

	node, err := wf.GetNode("O1")
	require.NoError(t, err)
	assert.Contains(t, node.Logs, "Digest: infra digest")
}

func TestRegistry_ExecutorRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	wf := engine.New("wf-invalid", "Invalid")
	_, err := wf.AddNode(engine.NodeSpec{ID: "A1", Type: models.NodeTypeTool})
	require.NoError(t, err)

	summary, err := engine.NewScheduler(newRegistry().Executors()).Execute(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, models.RunOutcomeError, summary.Outcome)

	history, err := wf.History("A1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Detail, "invalid node config")
}

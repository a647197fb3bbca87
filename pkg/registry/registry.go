// Package registry maps node types to the actions that perform their work and adapts them to
// the engine's executor contract.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/protocol"
)

// ActionConfigKey is the node config key that overrides the node type's default action.
const ActionConfigKey = "action"

var (
	ErrActionNotRegistered = errors.New("action not registered")
	ErrInvalidConfig       = errors.New("invalid node config")
)

// Component describes a registered action to API clients.
type Component struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
	DefaultFor  []string       `json:"default_for,omitempty"`
}

type Registry struct {
	logger *slog.Logger

	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
	defaults        map[models.NodeType]string
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
		defaults:        make(map[models.NodeType]string),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
	r.logger.Debug("Registered action", "action", actionFactory.ID())
}

// SetDefault selects the action nodes of nodeType run when their config names none.
func (r *Registry) SetDefault(nodeType models.NodeType, actionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaults[nodeType] = actionID
}

func (r *Registry) CreateAction(actionID string, config map[string]any) (protocol.Action, error) {
	factory, err := r.factory(actionID)
	if err != nil {
		return nil, err
	}

	return factory.Create(actionConfig(config))
}

// ActionID resolves the action a node runs: config.action when set, else the type default.
func (r *Registry) ActionID(node *models.WorkflowNode) (string, error) {
	if id, ok := node.Config[ActionConfigKey].(string); ok && id != "" {
		return id, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.defaults[node.Type]
	if !ok {
		return "", fmt.Errorf("%w: no default action for node type %s", ErrActionNotRegistered, node.Type)
	}

	return id, nil
}

// Components lists registered actions ordered by id.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.actionFactories))
	components := make([]Component, 0, len(ids))

	for _, id := range ids {
		factory := r.actionFactories[id]

		var defaultFor []string

		for nodeType, actionID := range r.defaults {
			if actionID == id {
				defaultFor = append(defaultFor, string(nodeType))
			}
		}

		slices.Sort(defaultFor)

		components = append(components, Component{
			ID:          id,
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
			DefaultFor:  defaultFor,
		})
	}

	return components
}

// HealthCheck reports whether every node type resolves to a registered action.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string

	for _, nodeType := range models.NodeTypes {
		if _, ok := r.actionFactories[r.defaults[nodeType]]; !ok {
			missing = append(missing, string(nodeType))
		}
	}

	if len(missing) > 0 {
		return fmt.Sprintf("No default action for node types: %v", missing), false
	}

	return fmt.Sprintf("%d actions registered", len(r.actionFactories)), true
}

func (r *Registry) factory(actionID string) (protocol.ActionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.actionFactories[actionID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrActionNotRegistered, actionID)
	}

	return factory, nil
}

// actionConfig strips the selector key before the config reaches the action.
func actionConfig(config map[string]any) map[string]any {
	out := make(map[string]any, len(config))

	for k, v := range config {
		if k != ActionConfigKey {
			out[k] = v
		}
	}

	return out
}

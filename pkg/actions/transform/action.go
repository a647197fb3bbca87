// Package transform provides an action that reshapes upstream outputs with a template
// expression.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ryxhub/flowengine/pkg/protocol"
	"github.com/ryxhub/flowengine/pkg/template"
)

var ErrExpressionMissing = errors.New("missing 'expression' in configuration")

type Action struct {
	Expression string
}

func NewAction(config map[string]any) (*Action, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return nil, ErrExpressionMissing
	}

	return &Action{Expression: expression}, nil
}

// Execute renders the expression. An object result becomes the node output as is; any other
// value is wrapped as {"result": value}.
func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (protocol.ActionResult, error) {
	logger = logger.With("module", "transform_action")

	result, err := template.RenderWithInput(a.Expression, input)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("transformation failed: %w", err)
	}

	output, ok := result.(map[string]any)
	if !ok {
		output = map[string]any{"result": result}
	}

	logger.DebugContext(ctx, "Transform completed", "keys", len(output))

	return protocol.ActionResult{Output: output}, nil
}

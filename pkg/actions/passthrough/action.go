// Package passthrough provides the default trigger action: it starts a run by emitting a fixed
// payload together with the workflow variables.
package passthrough

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/ryxhub/flowengine/pkg/protocol"
)

// Action emits its payload merged over the workflow variables. Payload keys win.
type Action struct {
	Payload map[string]any
}

func NewAction(config map[string]any) (*Action, error) {
	payload := map[string]any{}

	if raw, ok := config["payload"]; ok && raw != nil {
		p, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrPayloadInvalid, raw)
		}

		payload = p
	}

	return &Action{Payload: payload}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (protocol.ActionResult, error) {
	output := make(map[string]any, len(input.Variables)+len(a.Payload))
	maps.Copy(output, input.Variables)
	maps.Copy(output, a.Payload)

	// Upstream outputs are forwarded too, so a trigger placed mid-graph does not drop data.
	for from, upstream := range input.Inputs {
		output[from] = upstream
	}

	logger.DebugContext(ctx, "Passing payload through", "keys", len(output))

	return protocol.ActionResult{
		Output: output,
		Logs:   []string{fmt.Sprintf("emitted %d field(s)", len(output))},
	}, nil
}

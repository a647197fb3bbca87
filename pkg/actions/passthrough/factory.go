package passthrough

import (
	"errors"

	"github.com/ryxhub/flowengine/pkg/protocol"
)

var ErrPayloadInvalid = errors.New("payload must be an object")

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "passthrough"
}

func (*ActionFactory) Name() string {
	return "Passthrough"
}

func (*ActionFactory) Description() string {
	return "Starts a run by emitting a static payload merged over the workflow variables."
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"payload": map[string]any{
				"type":        "object",
				"description": "Fields emitted to downstream nodes.",
			},
		},
	}
}

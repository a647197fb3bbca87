package transform

import "github.com/ryxhub/flowengine/pkg/protocol"

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (*ActionFactory) ID() string {
	return "transform"
}

func (*ActionFactory) Name() string {
	return "Transform"
}

func (*ActionFactory) Description() string {
	return "Builds a new output from upstream outputs with a template expression."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"format":      "code",
				"minLength":   1,
				"description": "Template producing the output. JSON objects become the node output.",
				"examples": []string{
					`{"title": "{{ .inputs.fetch.body.title }}", "at": "{{ now }}"}`,
					"{{ len .inputs }}",
				},
			},
		},
		"required": []string{"expression"},
	}
}

package httprequest

import "github.com/ryxhub/flowengine/pkg/protocol"

// ActionFactory creates HTTP request actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

// ID returns the unique identifier for the action.
func (*ActionFactory) ID() string {
	return "http_request"
}

func (*ActionFactory) Name() string {
	return "HTTP Request"
}

func (*ActionFactory) Description() string {
	return "Performs an HTTP request. URL, headers and body are templates over upstream outputs."
}

// Schema returns the JSON schema for configuring this action.
func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"title":       "URL",
				"type":        "string",
				"minLength":   1,
				"description": "The URL to send the HTTP request to. Supports templating with upstream outputs.",
				"examples": []string{
					"https://api.example.com/users",
					"https://api.example.com/users/{{ .inputs.lookup.body.id }}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use",
				"default":     "GET",
				"enum": []string{
					"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS",
					"get", "post", "put", "delete", "patch", "head", "options",
				},
			},
			"headers": map[string]any{
				"type":                 "object",
				"description":          "HTTP headers to include in the request. Values support templating.",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     defaultTimeoutSeconds,
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required": []string{"url"},
	}
}

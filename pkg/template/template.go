// Package template renders node configuration values against upstream outputs and workflow
// variables.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/ryxhub/flowengine/pkg/protocol"
)

// Data builds the template root for an action input:
//
//	.inputs.<node_id>.<key>   output of a direct predecessor
//	.vars / .variables        workflow variables
//	.node.id, .node.name
//	.run.id, .run.workflow_id
//	.env                      process environment
func Data(input protocol.ActionInput) map[string]any {
	return map[string]any{
		"inputs":    input.Inputs,
		"variables": input.Variables,
		"vars":      input.Variables,
		"node": map[string]any{
			"id":   input.NodeID,
			"name": input.NodeName,
		},
		"run": map[string]any{
			"id":          input.RunID,
			"workflow_id": input.WorkflowID,
		},
		"env": getEnvVars(),
	}
}

func RenderWithInput(input string, actionInput protocol.ActionInput) (any, error) {
	return Render(input, Data(actionInput))
}

// RenderString renders and always returns the textual form, for values such as URLs and
// headers that must stay strings even when they look like numbers.
func RenderString(input string, actionInput protocol.ActionInput) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	out, err := execute(input, Data(actionInput))
	if err != nil {
		return "", err
	}

	return out, nil
}

// NeedsTemplating reports whether input contains a template action.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Render executes templateStr and decodes the result: JSON objects and arrays, numbers and
// booleans come back typed, anything else as a string.
func Render(templateStr string, data any) (any, error) {
	result, err := execute(templateStr, data)
	if err != nil {
		return nil, err
	}

	result = strings.TrimSpace(result)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func execute(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
			"json": func(v any) (string, error) {
				out, err := json.Marshal(v)

				return string(out), err
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}

// Package log provides the log action, the default work of output nodes: it renders a message
// over the upstream outputs and writes it to the node log and the process log.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ryxhub/flowengine/pkg/protocol"
	"github.com/ryxhub/flowengine/pkg/template"
)

const defaultMessage = "{{ json .inputs }}"

type Action struct {
	Message string
	Level   slog.Level
}

func NewAction(config map[string]any) (*Action, error) {
	message, _ := config["message"].(string)
	if message == "" {
		message = defaultMessage
	}

	level := slog.LevelInfo

	if raw, ok := config["level"].(string); ok && raw != "" {
		switch strings.ToLower(raw) {
		case "warning":
			level = slog.LevelWarn
		default:
			if err := level.UnmarshalText([]byte(raw)); err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", raw, err)
			}
		}
	}

	return &Action{Message: message, Level: level}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (protocol.ActionResult, error) {
	message, err := template.RenderString(a.Message, input)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to render log message template: %w", err)
	}

	logger.With("action_type", "log").Log(ctx, a.Level, message, "node_id", input.NodeID)

	return protocol.ActionResult{
		Output: map[string]any{
			"message": message,
			"level":   strings.ToLower(a.Level.String()),
		},
		Logs: []string{message},
	}, nil
}

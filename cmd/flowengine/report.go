package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/ryxhub/flowengine/pkg/models"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warningStyle = color.New(color.FgYellow)
	dimStyle     = color.New(color.Faint)
)

func statusStyle(status models.NodeStatus) *color.Color {
	switch status {
	case models.NodeStatusSuccess:
		return successStyle
	case models.NodeStatusError:
		return errorStyle
	case models.NodeStatusCancelled:
		return warningStyle
	default:
		return dimStyle
	}
}

// printSummary writes one line per node in execution order followed by the run outcome.
func printSummary(w io.Writer, doc *models.Workflow, summary models.RunSummary) {
	names := make(map[string]string, len(doc.Nodes))
	for _, node := range doc.Nodes {
		names[node.ID] = node.Name
	}

	headerStyle.Fprintf(w, "Workflow %s (%s)\n", doc.Name, doc.ID)
	dimStyle.Fprintf(w, "run %s, %s\n", summary.RunID, summary.EndedAt.Sub(summary.StartedAt).Round(time.Millisecond))

	for _, id := range summary.Order {
		status := summary.Statuses[id]
		fmt.Fprintf(w, "  %-12s %-24s %s\n", id, names[id], statusStyle(status).Sprint(status))
	}

	outcome := successStyle
	switch summary.Outcome {
	case models.RunOutcomeError:
		outcome = errorStyle
	case models.RunOutcomeCancelled:
		outcome = warningStyle
	}

	outcome.Fprintf(w, "%s", summary.Outcome)

	if len(summary.Failed) > 0 {
		fmt.Fprintf(w, " failed=%v", summary.Failed)
	}

	if len(summary.Cancelled) > 0 {
		fmt.Fprintf(w, " cancelled=%v", summary.Cancelled)
	}

	fmt.Fprintln(w)
}

// printOrder writes the topological order and any validation warnings.
func printOrder(w io.Writer, doc *models.Workflow, order, warnings []string) {
	headerStyle.Fprintf(w, "Workflow %s is valid\n", doc.Name)

	for i, id := range order {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, id)
	}

	for _, warning := range warnings {
		warningStyle.Fprintf(w, "warning: %s\n", warning)
	}
}

package otelhelper

import (
	"github.com/ryxhub/flowengine/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NodeFailed marks a node span as failed. Work failures are node outcomes, not engine errors,
// so they are recorded as an event on the span plus an error status.
func NodeFailed(span trace.Span, nodeID string, err error) {
	span.RecordError(err, trace.WithAttributes(attribute.String(NodeIDKey, nodeID)))
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(NodeStatusKey, string(models.NodeStatusError)))
}

// RunEnded annotates a run span with its outcome and per-status counts.
func RunEnded(span trace.Span, summary models.RunSummary) {
	span.SetAttributes(
		attribute.String(RunOutcomeKey, string(summary.Outcome)),
		attribute.Int("flowengine.run.nodes", len(summary.Order)),
		attribute.Int("flowengine.run.succeeded", summary.Count(models.NodeStatusSuccess)),
		attribute.StringSlice("flowengine.run.failed", summary.Failed),
		attribute.StringSlice("flowengine.run.cancelled", summary.Cancelled),
	)

	if summary.Outcome == models.RunOutcomeError {
		span.SetStatus(codes.Error, "one or more nodes failed")
	}
}

// Package events defines event types and structures for workflow run notifications.
package events

import (
	"time"

	"github.com/ryxhub/flowengine/pkg/models"
)

type EventType string

// Topic is the bus topic every workflow event is published to.
const Topic = "flowengine.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	NodeStatusChangedEvent EventType = "node.status_changed"
	NodeLogAppendedEvent   EventType = "node.log_appended"
	RunStartedEvent        EventType = "run.started"
	RunEndedEvent          EventType = "run.ended"
)

// Event is anything that can travel on the event bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id,omitempty"`
}

// NodeStatusChanged is emitted on every state machine transition.
type NodeStatusChanged struct {
	BaseEvent

	NodeID string            `json:"node_id"`
	From   models.NodeStatus `json:"from"`
	To     models.NodeStatus `json:"to"`
	Detail string            `json:"detail,omitempty"`
}

func (e NodeStatusChanged) GetType() EventType {
	return NodeStatusChangedEvent
}

// NodeLogAppended carries a single log line added to a node.
type NodeLogAppended struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Line   string `json:"line"`
}

func (e NodeLogAppended) GetType() EventType {
	return NodeLogAppendedEvent
}

type RunStarted struct {
	BaseEvent

	Order []string `json:"order"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunEnded struct {
	BaseEvent

	Summary models.RunSummary `json:"summary"`
}

func (e RunEnded) GetType() EventType {
	return RunEndedEvent
}

// New returns an empty event of the given type, ready to be unmarshalled into.
func New(eventType EventType) (Event, bool) {
	switch eventType {
	case NodeStatusChangedEvent:
		return &NodeStatusChanged{}, true
	case NodeLogAppendedEvent:
		return &NodeLogAppended{}, true
	case RunStartedEvent:
		return &RunStarted{}, true
	case RunEndedEvent:
		return &RunEnded{}, true
	default:
		return nil, false
	}
}

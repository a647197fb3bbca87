package models

import (
	"slices"
	"time"
)

// NodeType is the closed set of node kinds a workflow can hold.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger"
	NodeTypeAgent   NodeType = "agent"
	NodeTypeTool    NodeType = "tool"
	NodeTypeOutput  NodeType = "output"
)

// NodeTypes lists every valid node type.
var NodeTypes = []NodeType{NodeTypeTrigger, NodeTypeAgent, NodeTypeTool, NodeTypeOutput}

func (t NodeType) Valid() bool {
	return slices.Contains(NodeTypes, t)
}

// NodeStatus defines the possible states of a node within a run.
type NodeStatus string

const (
	NodeStatusIdle      NodeStatus = "idle"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusSuccess   NodeStatus = "success"
	NodeStatusError     NodeStatus = "error"
	NodeStatusCancelled NodeStatus = "cancelled" // In flight when the run was cancelled
)

// IsTerminal reports whether no further automatic transition happens without a reset.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusSuccess || s == NodeStatusError || s == NodeStatusCancelled
}

// WorkflowNode represents a node instance in a workflow.
type WorkflowNode struct {
	ID        string         `json:"id"                   yaml:"id"                   validate:"required"`
	Type      NodeType       `json:"type"                 yaml:"type"                 validate:"required,oneof=trigger agent tool output"`
	Name      string         `json:"name"                 yaml:"name"                 validate:"required,min=1"`
	Status    NodeStatus     `json:"status,omitempty"     yaml:"status,omitempty"     validate:"omitempty,oneof=idle running success error cancelled"`
	Config    map[string]any `json:"config,omitempty"     yaml:"config,omitempty"`
	Logs      []string       `json:"logs,omitempty"       yaml:"logs,omitempty"`
	Runs      []RunRecord    `json:"runs,omitempty"       yaml:"runs,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero"  yaml:"created_at,omitempty"`
}

// Package models defines the core domain models for node-based workflow graphs
package models

import "time"

// Workflow is the document form of a workflow graph: what gets stored, transported and loaded back
// into a live engine aggregate.
type Workflow struct {
	ID          string          `json:"id"                    yaml:"id"                    validate:"required"`
	Name        string          `json:"name"                  yaml:"name"                  validate:"required,min=1"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Schedule    string          `json:"schedule,omitempty"    yaml:"schedule,omitempty"` // Cron expression, optional
	Nodes       []*WorkflowNode `json:"nodes"                 yaml:"nodes"                 validate:"dive"`
	Connections []*Connection   `json:"connections"           yaml:"connections"           validate:"dive"`
	Variables   map[string]any  `json:"variables,omitempty"   yaml:"variables,omitempty"`
	CreatedAt   time.Time       `json:"created_at"            yaml:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"            yaml:"updated_at,omitempty"`
}

// Connection denotes that node To depends on node From.
type Connection struct {
	ID   string `json:"id"   yaml:"id"   validate:"required"`
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to"   yaml:"to"   validate:"required"`
}

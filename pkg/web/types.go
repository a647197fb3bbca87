// Package web provides the REST API over workflows, their graphs and their runs.
package web

import (
	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow. Nodes and
// connections are optional; they can be added one by one afterwards.
type CreateWorkflowRequest struct {
	ID          string                    `json:"id,omitempty"`
	Name        string                    `json:"name"                  validate:"required,min=1"`
	Description string                    `json:"description"`
	Schedule    string                    `json:"schedule,omitempty"    validate:"omitempty,schedule"`
	Variables   map[string]any            `json:"variables"`
	Nodes       []CreateNodeRequest       `json:"nodes,omitempty"       validate:"dive"`
	Connections []CreateConnectionRequest `json:"connections,omitempty" validate:"dive"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string        `json:"description,omitempty"`
	Schedule    *string        `json:"schedule,omitempty"    validate:"omitempty,schedule"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// CreateNodeRequest represents the request body for creating a new workflow node.
type CreateNodeRequest struct {
	ID     string         `json:"id,omitempty"`
	Type   string         `json:"type"             validate:"required,oneof=trigger agent tool output"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// UpdateNodeRequest represents the request body for updating an existing workflow node.
// Type cannot be changed; config is replaced as a whole.
type UpdateNodeRequest struct {
	Name   *string        `json:"name,omitempty" validate:"omitempty,min=1"`
	Config map[string]any `json:"config,omitempty"`
}

// CreateConnectionRequest declares that node To depends on node From.
type CreateConnectionRequest struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from"         validate:"required"`
	To   string `json:"to"           validate:"required"`
}

// RunResponse is returned when a run is accepted.
type RunResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// Document converts the request into the stored workflow form.
func (r CreateWorkflowRequest) Document() *models.Workflow {
	doc := &models.Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Schedule:    r.Schedule,
		Variables:   r.Variables,
		Nodes:       make([]*models.WorkflowNode, 0, len(r.Nodes)),
		Connections: make([]*models.Connection, 0, len(r.Connections)),
	}

	for _, n := range r.Nodes {
		id := n.ID
		if id == "" {
			id = uuid.NewString()
		}

		name := n.Name
		if name == "" {
			name = n.Type
		}

		doc.Nodes = append(doc.Nodes, &models.WorkflowNode{
			ID:     id,
			Type:   models.NodeType(n.Type),
			Name:   name,
			Config: n.Config,
		})
	}

	for _, c := range r.Connections {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}

		doc.Connections = append(doc.Connections, &models.Connection{ID: id, From: c.From, To: c.To})
	}

	return doc
}

// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"

	"github.com/ryxhub/flowengine/pkg/models"
)

// Persistence stores workflow documents, including each node's logs and run history.
// WorkflowByID and DeleteWorkflow return an error matching ErrWorkflowNotFound for unknown ids.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

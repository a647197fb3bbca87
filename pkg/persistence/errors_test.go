package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ryxhub/flowengine/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestWorkflowError(t *testing.T) {
	t.Parallel()

	err := persistence.NewWorkflowError("WorkflowByID", "wf-123", persistence.ErrWorkflowNotFound)

	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(fmt.Errorf("load: %w", err)))
	assert.False(t, errors.Is(err, persistence.ErrInvalidWorkflow))

	assert.Contains(t, err.Error(), "WorkflowByID")
	assert.Contains(t, err.Error(), "wf-123")
	assert.Contains(t, err.Error(), "workflow not found")
}

func TestIsWorkflowNotFound_Plain(t *testing.T) {
	t.Parallel()

	assert.False(t, persistence.IsWorkflowNotFound(nil))
	assert.False(t, persistence.IsWorkflowNotFound(errors.New("workflow not found")))
}

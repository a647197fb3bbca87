// Package services holds the application layer between the transports and the engine.
package services

import (
	"errors"
	"fmt"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/persistence"
)

var (
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")

	ErrWorkflowExists = errors.New("workflow already exists")
	ErrNoActiveRun    = errors.New("workflow has no active run")

	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError is a rejected request. Code is a stable identifier transports can expose.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ServiceError for a malformed request.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// Code returns the code of the first ServiceError in err's chain, or fallback.
func Code(err error, fallback string) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}

	return fallback
}

// IsValidationError reports errors caused by a malformed request or document.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, persistence.ErrInvalidWorkflow) ||
		engine.IsValidationError(err)
}

// IsConflictError reports errors caused by the current state of a workflow.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowExists) ||
		errors.Is(err, ErrNoActiveRun) ||
		engine.IsConflictError(err)
}

// IsNotFoundError reports an unknown workflow, node or connection.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) || engine.IsNotFound(err)
}

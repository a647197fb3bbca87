// Package engine provides standardized error types for workflow graph operations.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ryxhub/flowengine/pkg/models"
)

var (
	// ErrNotFound indicates an unknown node or connection id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID indicates a caller-supplied id (or edge) that already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrCycle indicates the connection set is not a directed acyclic graph.
	ErrCycle = errors.New("cycle detected")

	// ErrNodeInUse indicates a node still referenced by a connection.
	ErrNodeInUse = errors.New("node in use")

	// ErrIllegalTransition indicates a status change not allowed by the state machine.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrWorkflowBusy indicates a mutation or run attempted while a run is in flight.
	ErrWorkflowBusy = errors.New("workflow is running")

	// ErrInvalidNode indicates a node specification that fails validation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrNoExecutor indicates a node type with no executor registered.
	ErrNoExecutor = errors.New("no executor for node type")
)

// NodeError wraps node-related errors with additional context.
type NodeError struct {
	Op     string // Operation being performed
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ConnectionError wraps connection-related errors with additional context.
type ConnectionError struct {
	Op           string
	ConnectionID string
	From         string
	To           string
	Err          error
}

func (e *ConnectionError) Error() string {
	target := e.ConnectionID
	if target == "" {
		target = e.From + " -> " + e.To
	}

	return fmt.Sprintf("%s failed for connection %s: %v", e.Op, target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// CycleError lists the nodes that take part in (or are blocked behind) a cycle.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(e.Nodes, ", "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	NodeID string
	From   models.NodeStatus
	To     models.NodeStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v for node %s: %s -> %s", ErrIllegalTransition, e.NodeID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateID(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}

func IsCycle(err error) bool {
	return errors.Is(err, ErrCycle)
}

func IsNodeInUse(err error) bool {
	return errors.Is(err, ErrNodeInUse)
}

func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

func IsWorkflowBusy(err error) bool {
	return errors.Is(err, ErrWorkflowBusy)
}

// IsValidationError checks if an error is a caller error about the graph's shape or contents.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidNode) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrNoExecutor)
}

// IsConflictError checks if an error is a conflict with the current state of the workflow.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowBusy) ||
		errors.Is(err, ErrNodeInUse) ||
		errors.Is(err, ErrDuplicateID)
}

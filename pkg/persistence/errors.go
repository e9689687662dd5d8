package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrIntegrationNotFound indicates the user has no credentials for the integration.
	ErrIntegrationNotFound = errors.New("integration not found")

	ErrInvalidWorkflowID = errors.New("invalid workflow id")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IntegrationError wraps integration-related errors with the owning user and integration id.
type IntegrationError struct {
	Op            string
	UserID        string
	IntegrationID string
	Err           error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s operation failed for integration %s of user %s: %v", e.Op, e.IntegrationID, e.UserID, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

func (e *IntegrationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewIntegrationError(op, userID, integrationID string, err error) *IntegrationError {
	return &IntegrationError{
		Op:            op,
		UserID:        userID,
		IntegrationID: integrationID,
		Err:           err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsIntegrationNotFound checks if an error indicates an integration was not found.
func IsIntegrationNotFound(err error) bool {
	return errors.Is(err, ErrIntegrationNotFound)
}

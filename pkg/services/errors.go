// Package services holds the workflow and trigger use cases behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

// Client errors.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
	ErrNoRootNodes          = errors.New("workflow has no node without incoming edges to start from")
	ErrTriggerNodeRequired  = errors.New("an active workflow must have at least one trigger node")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrSchemaMismatch       = workflow.ErrSchemaMismatch

	ErrWorkflowNotFound    = persistence.ErrWorkflowNotFound
	ErrIntegrationNotFound = persistence.ErrIntegrationNotFound
	ErrNoMatchingWorkflow  = errors.New("no active workflow matches the trigger")
)

// ErrorKind groups errors by how a caller should report them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
)

var validationErrors = []error{
	ErrInvalidRequest,
	ErrWorkflowNameRequired,
	ErrNodesRequired,
	ErrNoRootNodes,
	ErrTriggerNodeRequired,
	ErrWorkflowNil,
	ErrSchemaMismatch,
	persistence.ErrInvalidWorkflowID,
}

// notFoundCodes is ordered: the first match names the missing resource.
var notFoundCodes = []struct {
	err  error
	code string
}{
	{ErrIntegrationNotFound, "integration_not_found"},
	{ErrNoMatchingWorkflow, "webhook_not_found"},
	{ErrWorkflowNotFound, "workflow_not_found"},
}

// ServiceError carries the operation and a stable code alongside the underlying sentinel.
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

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// Classify reports the kind of err. Unknown errors are internal.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return KindValidation
		}
	}

	for _, nf := range notFoundCodes {
		if errors.Is(err, nf.err) {
			return KindNotFound
		}
	}

	return KindInternal
}

// Code returns a machine-readable code: the ServiceError code when one is set, otherwise a
// per-kind default such as "validation_error" or "workflow_not_found".
func Code(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}

	switch Classify(err) {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		for _, nf := range notFoundCodes {
			if errors.Is(err, nf.err) {
				return nf.code
			}
		}
	}

	return "internal_error"
}

func IsValidationError(err error) bool {
	return Classify(err) == KindValidation
}

func IsNotFoundError(err error) bool {
	return Classify(err) == KindNotFound
}

package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/services"
	"github.com/stretchr/testify/assert"
)

func TestClassifyAndCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind services.ErrorKind
		wantCode string
	}{
		{
			name:     "coded validation error",
			err:      services.NewValidationError("Execute", "NODES_REQUIRED", "No nodes to execute", services.ErrNodesRequired),
			wantKind: services.KindValidation,
			wantCode: "NODES_REQUIRED",
		},
		{
			name:     "bare validation sentinel",
			err:      fmt.Errorf("create: %w", services.ErrWorkflowNameRequired),
			wantKind: services.KindValidation,
			wantCode: "validation_error",
		},
		{
			name:     "schema mismatch",
			err:      services.ErrSchemaMismatch,
			wantKind: services.KindValidation,
			wantCode: "validation_error",
		},
		{
			name:     "workflow missing in store",
			err:      persistence.NewWorkflowError("GetByID", "wf-1", persistence.ErrWorkflowNotFound),
			wantKind: services.KindNotFound,
			wantCode: "workflow_not_found",
		},
		{
			name:     "integration missing",
			err:      persistence.NewIntegrationError("Get", "user-1", "slack", persistence.ErrIntegrationNotFound),
			wantKind: services.KindNotFound,
			wantCode: "integration_not_found",
		},
		{
			name:     "no matching webhook",
			err:      services.ErrNoMatchingWorkflow,
			wantKind: services.KindNotFound,
			wantCode: "webhook_not_found",
		},
		{
			name:     "anything else",
			err:      errors.New("disk full"),
			wantKind: services.KindInternal,
			wantCode: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantKind, services.Classify(tt.err))
			assert.Equal(t, tt.wantCode, services.Code(tt.err))
			assert.Equal(t, tt.wantKind == services.KindValidation, services.IsValidationError(tt.err))
			assert.Equal(t, tt.wantKind == services.KindNotFound, services.IsNotFoundError(tt.err))
		})
	}
}

func TestServiceError_Message(t *testing.T) {
	t.Parallel()

	withMessage := services.NewValidationError("Create", "NAME_REQUIRED", "workflow name is required", services.ErrWorkflowNameRequired)
	assert.Equal(t, "Create: workflow name is required", withMessage.Error())

	withoutMessage := &services.ServiceError{Op: "Delete", Err: services.ErrWorkflowNil}
	assert.Equal(t, "Delete: workflow cannot be nil", withoutMessage.Error())
	assert.ErrorIs(t, withoutMessage, services.ErrWorkflowNil)
}

package web

import "github.com/BabaVossRS3/FlowForge/pkg/models"

// UserIDHeader identifies the calling user. Authentication happens in front of the API.
const UserIDHeader = "X-User-ID"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required"`
	Description string         `json:"description"`
	Nodes       []*models.Node `json:"nodes"`
	Edges       []*models.Edge `json:"edges"`
	IsActive    bool           `json:"isActive"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string        `json:"description,omitempty"`
	Nodes       []*models.Node `json:"nodes,omitempty"`
	Edges       []*models.Edge `json:"edges,omitempty"`
	IsActive    *bool          `json:"isActive,omitempty"`
}

// ExecuteWorkflowRequest optionally overrides the stored graph and seeds the trigger nodes.
type ExecuteWorkflowRequest struct {
	Nodes       []*models.Node `json:"nodes,omitempty"`
	Edges       []*models.Edge `json:"edges,omitempty"`
	TriggerData map[string]any `json:"triggerData,omitempty"`
}

type ExecuteWorkflowResponse struct {
	Message string               `json:"message"`
	Error   string               `json:"error,omitempty"`
	Log     *models.ExecutionLog `json:"log"`
}

type WebhookResponse struct {
	Message     string                 `json:"message"`
	WebhookID   string                 `json:"webhookId"`
	ExecutionID string                 `json:"executionId"`
	Status      models.ExecutionStatus `json:"status"`
	Results     *models.Results        `json:"executionResults,omitempty"`
}

type ChatWebhookResponse struct {
	OK       bool `json:"ok"`
	Executed int  `json:"executed"`
}

type IntegrationUpdateResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

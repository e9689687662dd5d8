package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Scheduler installs and removes the schedule of a workflow. *scheduler.Scheduler implements it.
type Scheduler interface {
	Schedule(ctx context.Context, wf *models.Workflow) error
	Unschedule(workflowID string)
}

// Runner executes a workflow and records the run. *workflow.Runner implements it.
type Runner interface {
	Run(ctx context.Context, run workflow.Run) (*models.ExecutionLog, error)
}

type Workflow struct {
	persistence persistence.Persistence
	scheduler   Scheduler
	runner      Runner
	ai          ai.Provider
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, scheduler Scheduler, runner Runner, provider ai.Provider, logger *slog.Logger) *Workflow {
	if provider == nil {
		provider = ai.Unconfigured{}
	}

	return &Workflow{
		persistence: persistence,
		scheduler:   scheduler,
		runner:      runner,
		ai:          provider,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the user's workflows, newest first. An empty user id lists every workflow.
func (w *Workflow) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	var (
		workflows []*models.Workflow
		err       error
	)

	if userID == "" {
		workflows, err = w.persistence.Workflows().GetAll(ctx)
	} else {
		workflows, err = w.persistence.Workflows().GetByOwner(ctx, userID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID returns the workflow when it belongs to the user. Workflows of other users are reported
// as not found.
func (w *Workflow) FetchByID(ctx context.Context, userID, id string) (*models.Workflow, error) {
	wf, err := w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if userID != "" && wf.UserID != userID {
		return nil, persistence.NewWorkflowError("FetchByID", id, ErrWorkflowNotFound)
	}

	return wf, nil
}

// Create stores a new workflow for the user and schedules it when it is created active.
func (w *Workflow) Create(ctx context.Context, userID string, wf *models.Workflow) (*models.Workflow, error) {
	if wf == nil {
		return nil, ErrWorkflowNil
	}

	if err := w.validateWorkflow("Create", wf); err != nil {
		return nil, err
	}

	if wf.IsActive {
		if err := validateForActivation(wf); err != nil {
			return nil, err
		}
	}

	wf.ID = uuid.New().String()
	wf.UserID = userID
	wf.ExecutionLogs = nil
	wf.CreatedAt = time.Time{}

	if err := w.persistence.Workflows().Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	if wf.IsActive {
		w.schedule(ctx, wf)
	}

	return wf, nil
}

// UpdateWorkflowRequest carries the fields to change; nil fields keep their stored value.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Nodes       []*models.Node `json:"nodes"`
	Edges       []*models.Edge `json:"edges"`
	IsActive    *bool          `json:"isActive"`
}

// Update applies the request. Activation schedules the workflow, deactivation unschedules it, and a
// graph change on an active workflow reschedules it.
func (w *Workflow) Update(ctx context.Context, userID, id string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	existing, err := w.FetchByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	wasActive := existing.IsActive
	graphChanged := req.Nodes != nil || req.Edges != nil

	updated := *existing

	if req.Name != nil {
		updated.Name = *req.Name
	}

	if req.Description != nil {
		updated.Description = *req.Description
	}

	if req.Nodes != nil {
		updated.Nodes = req.Nodes
	}

	if req.Edges != nil {
		updated.Edges = req.Edges
	}

	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	if err := w.validateWorkflow("Update", &updated); err != nil {
		return nil, err
	}

	if updated.IsActive && (!wasActive || graphChanged) {
		if err := validateForActivation(&updated); err != nil {
			return nil, err
		}
	}

	if err := w.persistence.Workflows().Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	switch {
	case updated.IsActive && (!wasActive || graphChanged):
		w.schedule(ctx, &updated)
	case !updated.IsActive && wasActive:
		w.scheduler.Unschedule(updated.ID)
	}

	return &updated, nil
}

// Delete removes the workflow and its schedule.
func (w *Workflow) Delete(ctx context.Context, userID, id string) error {
	if _, err := w.FetchByID(ctx, userID, id); err != nil {
		return err
	}

	if err := w.persistence.Workflows().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.scheduler.Unschedule(id)

	return nil
}

// ExecuteRequest runs a stored workflow, optionally on an unsaved graph.
type ExecuteRequest struct {
	Nodes       []*models.Node `json:"nodes"`
	Edges       []*models.Edge `json:"edges"`
	TriggerData map[string]any `json:"triggerData"`
}

// Execute runs the workflow manually. The request graph, when given, replaces the stored one for this
// run only. Failed runs are returned as an entry with the failure status, not as an error.
func (w *Workflow) Execute(ctx context.Context, userID, id string, req ExecuteRequest) (*models.ExecutionLog, error) {
	wf, err := w.FetchByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	nodes, edges := wf.Nodes, wf.Edges
	if req.Nodes != nil {
		nodes, edges = req.Nodes, req.Edges
	}

	if len(nodes) == 0 {
		return nil, NewValidationError("Execute", "NODES_REQUIRED", "No nodes to execute", ErrNodesRequired)
	}

	graph := models.NewGraph(nodes, edges)
	if len(graph.Roots()) == 0 {
		return nil, NewValidationError("Execute", "NO_ROOT_NODES", "No trigger nodes found", ErrNoRootNodes)
	}

	entry, err := w.runner.Run(ctx, workflow.Run{
		Workflow:    wf,
		Source:      models.ExecutionSourceManual,
		Graph:       graph,
		TriggerData: req.TriggerData,
	})
	if err != nil {
		return entry, fmt.Errorf("failed to record execution: %w", err)
	}

	return entry, nil
}

// Logs returns the workflow's execution history, newest first.
func (w *Workflow) Logs(ctx context.Context, userID, id string) ([]*models.ExecutionLog, error) {
	wf, err := w.FetchByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	logs := slices.Clone(wf.ExecutionLogs)
	slices.Reverse(logs)

	if logs == nil {
		logs = []*models.ExecutionLog{}
	}

	return logs, nil
}

// Validate asks the AI provider to review the workflow's structure.
func (w *Workflow) Validate(ctx context.Context, userID, id string) (*ai.ValidationReport, error) {
	wf, err := w.FetchByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return ai.ValidateWorkflow(ctx, w.ai, wf), nil
}

// schedule logs scheduling failures; the workflow stays stored and unscheduled.
func (w *Workflow) schedule(ctx context.Context, wf *models.Workflow) {
	if err := w.scheduler.Schedule(ctx, wf); err != nil {
		w.logger.WarnContext(ctx, "workflow saved but not scheduled", "workflow_id", wf.ID, "error", err)
	}
}

func (w *Workflow) validateWorkflow(op string, wf *models.Workflow) error {
	if strings.TrimSpace(wf.Name) == "" {
		return NewValidationError(op, "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	if err := w.validate.Struct(wf); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(op, "INVALID_WORKFLOW", validationErrors.Error(), ErrInvalidRequest)
		}

		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}

// validateForActivation ensures an active workflow has something that can start it.
func validateForActivation(wf *models.Workflow) error {
	if len(wf.Nodes) == 0 {
		return NewValidationError("Activate", "NODES_REQUIRED", "workflow must have at least one node", ErrNodesRequired)
	}

	if wf.FirstTrigger() == nil {
		return NewValidationError("Activate", "TRIGGER_REQUIRED", "workflow must have at least one trigger node", ErrTriggerNodeRequired)
	}

	return nil
}

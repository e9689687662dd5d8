// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates an inactive workflow owned by "user-1" with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	wf := &models.Workflow{
		ID:          uuid.New().String(),
		UserID:      "user-1",
		Name:        "Test Workflow",
		Description: "A test workflow",
		Nodes:       []*models.Node{ManualTrigger("trigger-1")},
		Edges:       []*models.Edge{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, override := range overrides {
		override(wf)
	}

	return wf
}

// WithActive sets the workflow activation flag.
func WithActive(active bool) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsActive = active
	}
}

// WithGraph replaces the workflow's nodes and edges.
func WithGraph(nodes []*models.Node, edges []*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}

func WithOwner(userID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.UserID = userID
	}
}

func ManualTrigger(id string) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{
		Type:     models.TriggerTypeManual,
		Manually: &models.ManualTrigger{},
	}}}
}

func ScheduleTrigger(id string, schedule *models.ScheduleConfig) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{
		Type:     models.TriggerTypeSchedule,
		Schedule: schedule,
	}}}
}

func WebhookTrigger(id, url, method string) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{
		Type:    models.TriggerTypeWebhook,
		Webhook: &models.WebhookTrigger{URL: url, Method: method},
	}}}
}

func ChatTrigger(id string, chat *models.ChatMessageTrigger) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{
		Type:        models.TriggerTypeChatMessage,
		ChatMessage: chat,
	}}}
}

// Action creates an action node; a nil config makes a no-op action.
func Action(id string, cfg *models.ActionConfig) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindAction, Config: models.NodeConfig{Action: cfg}}
}

func Notification(id string, cfg *models.NotificationConfig) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindNotification, Config: models.NodeConfig{Notification: cfg}}
}

func Condition(id string, cfg *models.ConditionConfig) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindCondition, Config: models.NodeConfig{Condition: cfg}}
}

// CompareLiterals builds a compare condition between two string literals.
func CompareLiterals(left string, operator models.Operator, right string) *models.ConditionConfig {
	return &models.ConditionConfig{
		Type: models.ConditionTypeCompare,
		Compare: &models.CompareCondition{
			LeftValue:  left,
			LeftType:   models.ValueTypeString,
			Operator:   operator,
			RightValue: right,
			RightType:  models.ValueTypeString,
		},
	}
}

// Edge connects two nodes; label is "", "true" or "false".
func Edge(source, target, label string) *models.Edge {
	return &models.Edge{Source: source, Target: target, Label: label}
}

// Package models defines the workflow document, its node graph and the records produced by executing it.
package models

import "time"

// Workflow is a user-owned graph of nodes together with its activation flag and execution history.
type Workflow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"          validate:"required"`
	Description   string          `json:"description"`
	Nodes         []*Node         `json:"nodes"         validate:"dive"`
	Edges         []*Edge         `json:"edges"         validate:"dive"`
	IsActive      bool            `json:"isActive"`
	ExecutionLogs []*ExecutionLog `json:"executionLogs"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Graph returns the executable view of the workflow's nodes and edges.
func (w *Workflow) Graph() *Graph {
	return NewGraph(w.Nodes, w.Edges)
}

// FirstTrigger returns the first node declared with the trigger kind, or nil.
func (w *Workflow) FirstTrigger() *Node {
	for _, node := range w.Nodes {
		if node != nil && node.Kind == NodeKindTrigger {
			return node
		}
	}

	return nil
}

// TriggerConfig returns the configuration of the first trigger node, or nil.
func (w *Workflow) TriggerConfig() *TriggerConfig {
	node := w.FirstTrigger()
	if node == nil {
		return nil
	}

	return node.Config.Trigger
}

// ScheduleConfig returns the schedule sub-config of the first trigger node, or nil.
func (w *Workflow) ScheduleConfig() *ScheduleConfig {
	cfg := w.TriggerConfig()
	if cfg == nil {
		return nil
	}

	return cfg.Schedule
}

// WithoutLogs returns a shallow copy of the workflow without its execution history.
func (w *Workflow) WithoutLogs() *Workflow {
	clone := *w
	clone.ExecutionLogs = nil

	return &clone
}

package models

import (
	"encoding/json"
	"fmt"
)

// NodeKind is the top-level category of a workflow node.
type NodeKind string

const (
	NodeKindTrigger      NodeKind = "trigger"
	NodeKindAction       NodeKind = "action"
	NodeKindCondition    NodeKind = "condition"
	NodeKindNotification NodeKind = "notification"
)

// Branch labels carried by edges leaving a condition node.
const (
	EdgeLabelTrue  = "true"
	EdgeLabelFalse = "false"
)

// Position is the editor canvas position of a node. The engine ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one vertex of a workflow graph.
type Node struct {
	ID       string     `json:"id"                 validate:"required"`
	Kind     NodeKind   `json:"kind"               validate:"required"`
	Label    string     `json:"label,omitempty"`
	Position *Position  `json:"position,omitempty"`
	Config   NodeConfig `json:"config"`
}

// Edge connects a source node to a target node. Label is only meaningful when the source is a condition.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"          validate:"required"`
	Target string `json:"target"          validate:"required"`
	Label  string `json:"label,omitempty"`
}

// NodeConfig holds exactly one per-kind configuration, selected by the owning node's kind.
type NodeConfig struct {
	Trigger      *TriggerConfig
	Action       *ActionConfig
	Condition    *ConditionConfig
	Notification *NotificationConfig

	// Raw keeps the undecoded payload of nodes whose kind is unknown.
	Raw json.RawMessage
}

type nodeDocument struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Label    string          `json:"label,omitempty"`
	Position *Position       `json:"position,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`

	// Editor documents nest the kind and config under data.
	Data *struct {
		Type   NodeKind        `json:"type"`
		Label  string          `json:"label"`
		Config json.RawMessage `json:"config"`
	} `json:"data,omitempty"`
}

// UnmarshalJSON decodes a node and its kind-specific configuration.
// Both the flat {"kind","config"} form and the editor's {"data":{"type","config"}} form are accepted.
func (n *Node) UnmarshalJSON(data []byte) error {
	var doc nodeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	n.ID = doc.ID
	n.Kind = doc.Kind
	n.Label = doc.Label
	n.Position = doc.Position
	raw := doc.Config

	if doc.Data != nil {
		if n.Kind == "" {
			n.Kind = doc.Data.Type
		}

		if n.Label == "" {
			n.Label = doc.Data.Label
		}

		if len(raw) == 0 {
			raw = doc.Data.Config
		}
	}

	cfg, err := decodeNodeConfig(n.Kind, raw)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}

	n.Config = cfg

	return nil
}

// MarshalJSON encodes the node in the flat form.
func (n Node) MarshalJSON() ([]byte, error) {
	var (
		config any
		err    error
	)

	switch n.Kind {
	case NodeKindTrigger:
		config = n.Config.Trigger
	case NodeKindAction:
		config = n.Config.Action
	case NodeKindCondition:
		config = n.Config.Condition
	case NodeKindNotification:
		config = n.Config.Notification
	default:
		if len(n.Config.Raw) > 0 {
			config = n.Config.Raw
		}
	}

	rawConfig, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	return json.Marshal(nodeDocument{
		ID:       n.ID,
		Kind:     n.Kind,
		Label:    n.Label,
		Position: n.Position,
		Config:   rawConfig,
	})
}

func decodeNodeConfig(kind NodeKind, raw json.RawMessage) (NodeConfig, error) {
	var cfg NodeConfig

	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	switch kind {
	case NodeKindTrigger:
		cfg.Trigger = &TriggerConfig{}
		if err := json.Unmarshal(raw, cfg.Trigger); err != nil {
			return cfg, fmt.Errorf("invalid trigger config: %w", err)
		}
	case NodeKindAction:
		cfg.Action = &ActionConfig{}
		if err := json.Unmarshal(raw, cfg.Action); err != nil {
			return cfg, fmt.Errorf("invalid action config: %w", err)
		}
	case NodeKindCondition:
		cfg.Condition = &ConditionConfig{}
		if err := json.Unmarshal(raw, cfg.Condition); err != nil {
			return cfg, fmt.Errorf("invalid condition config: %w", err)
		}
	case NodeKindNotification:
		cfg.Notification = &NotificationConfig{}
		if err := json.Unmarshal(raw, cfg.Notification); err != nil {
			return cfg, fmt.Errorf("invalid notification config: %w", err)
		}
	default:
		cfg.Raw = raw
	}

	return cfg, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NodeStatus is the outcome of one node execution.
type NodeStatus string

const (
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
)

// ResultKindVariable marks entries stored under a declared variable name instead of a node id.
const ResultKindVariable = "variable"

// NodeResult is what one node recorded during a graph walk.
type NodeResult struct {
	Kind   string     `json:"kind"`
	Status NodeStatus `json:"status"`
	Data   any        `json:"data"`
}

// Results maps node ids and variable names to node results, preserving insertion order.
// It is not safe for concurrent use; a graph walk is sequential.
type Results struct {
	keys    []string
	entries map[string]*NodeResult
}

func NewResults() *Results {
	return &Results{entries: map[string]*NodeResult{}}
}

// Set stores a result. Overwriting a key keeps its original position.
func (r *Results) Set(key string, result *NodeResult) {
	if r.entries == nil {
		r.entries = map[string]*NodeResult{}
	}

	if _, exists := r.entries[key]; !exists {
		r.keys = append(r.keys, key)
	}

	r.entries[key] = result
}

func (r *Results) Get(key string) (*NodeResult, bool) {
	if r == nil {
		return nil, false
	}

	result, ok := r.entries[key]

	return result, ok
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}

	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *Results) Keys() []string {
	if r == nil {
		return nil
	}

	return append([]string(nil), r.keys...)
}

// FirstOfKind returns the earliest recorded result of the given kind.
func (r *Results) FirstOfKind(kind string) (*NodeResult, bool) {
	if r == nil {
		return nil, false
	}

	for _, key := range r.keys {
		if result := r.entries[key]; result != nil && result.Kind == kind {
			return result, true
		}
	}

	return nil, false
}

// TriggerData returns the payload of the first recorded trigger result.
func (r *Results) TriggerData() (map[string]any, bool) {
	result, ok := r.FirstOfKind(string(NodeKindTrigger))
	if !ok {
		return nil, false
	}

	data, ok := result.Data.(map[string]any)
	if !ok {
		return nil, false
	}

	triggerData, ok := data["triggerData"].(map[string]any)

	return triggerData, ok
}

// MarshalJSON writes the results as a JSON object in insertion order.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		encodedValue, err := json.Marshal(r.entries[key])
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", key, err)
		}

		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the document's key order.
func (r *Results) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("results must be a JSON object")
	}

	*r = Results{entries: map[string]*NodeResult{}}

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}

		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected results key %v", token)
		}

		var result NodeResult
		if err := decoder.Decode(&result); err != nil {
			return fmt.Errorf("result %s: %w", key, err)
		}

		r.Set(key, &result)
	}

	_, err = decoder.Token()

	return err
}

// ExecutionStatus is the overall outcome of one run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailure ExecutionStatus = "failure"
	ExecutionStatusRunning ExecutionStatus = "running"
)

// ExecutionSource names what started a run.
type ExecutionSource string

const (
	ExecutionSourceManual   ExecutionSource = "manual"
	ExecutionSourceWebhook  ExecutionSource = "webhook"
	ExecutionSourceChat     ExecutionSource = "chat"
	ExecutionSourceSchedule ExecutionSource = "schedule"
)

// ExecutionLog is one entry of a workflow's append-only execution history.
type ExecutionLog struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Status    ExecutionStatus `json:"status"`
	Message   string          `json:"message"`
	Source    ExecutionSource `json:"source,omitempty"`
	Results   *Results        `json:"results,omitempty"`
	Error     string          `json:"error,omitempty"`

	// Context carries source-specific details such as the chat platform or webhook id.
	Context map[string]any `json:"context,omitempty"`
}

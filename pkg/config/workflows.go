// Package config loads workflow definitions from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoWorkflows      = errors.New("definition file contains no workflows")
	ErrDuplicateID      = errors.New("duplicate workflow id")
	ErrMissingTrigger   = errors.New("active workflow has no trigger node")
	ErrUnknownEdgeNode  = errors.New("edge references an unknown node")
	ErrDuplicateNodeID  = errors.New("duplicate node id")
	ErrMissingWorkflows = errors.New("workflows key is required")
)

// WorkflowFile is the layout of a definition file:
//
//	workflows:
//	  - id: daily-report
//	    userId: user-1
//	    name: Daily report
//	    isActive: true
//	    nodes: [...]
//	    edges: [...]
//
// Documents use the same field names as the HTTP API; YAML is decoded and re-read as JSON so node
// configuration goes through the same decoding.
type WorkflowFile struct {
	Workflows []*models.Workflow `json:"workflows"`
}

// LoadWorkflows reads and validates a definition file.
func LoadWorkflows(path string) ([]*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}

	workflows, err := ParseWorkflows(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return workflows, nil
}

// ParseWorkflows decodes YAML (or JSON, which YAML accepts) definitions and validates them.
func ParseWorkflows(data []byte) ([]*models.Workflow, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse YAML definitions: %w", err)
	}

	if _, ok := document["workflows"]; !ok {
		return nil, ErrMissingWorkflows
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert definitions: %w", err)
	}

	var file WorkflowFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode workflows: %w", err)
	}

	if err := ValidateWorkflows(file.Workflows); err != nil {
		return nil, err
	}

	return file.Workflows, nil
}

// ValidateWorkflows checks struct tags, unique ids, edge endpoints and that active workflows can be
// triggered.
func ValidateWorkflows(workflows []*models.Workflow) error {
	if len(workflows) == 0 {
		return ErrNoWorkflows
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	ids := make(map[string]bool, len(workflows))

	for i, wf := range workflows {
		if wf == nil {
			return fmt.Errorf("workflows[%d]: empty definition", i)
		}

		if err := validate.Struct(wf); err != nil {
			return fmt.Errorf("workflows[%d]: %w", i, err)
		}

		if wf.ID != "" {
			if ids[wf.ID] {
				return fmt.Errorf("workflows[%d]: %w %q", i, ErrDuplicateID, wf.ID)
			}

			ids[wf.ID] = true
		}

		if err := validateGraph(wf); err != nil {
			return fmt.Errorf("workflows[%d] %s: %w", i, strings.TrimSpace(wf.Name), err)
		}
	}

	return nil
}

func validateGraph(wf *models.Workflow) error {
	nodes := make(map[string]bool, len(wf.Nodes))

	for _, node := range wf.Nodes {
		if nodes[node.ID] {
			return fmt.Errorf("%w %q", ErrDuplicateNodeID, node.ID)
		}

		nodes[node.ID] = true
	}

	for _, edge := range wf.Edges {
		if !nodes[edge.Source] || !nodes[edge.Target] {
			return fmt.Errorf("%w: %s -> %s", ErrUnknownEdgeNode, edge.Source, edge.Target)
		}
	}

	if wf.IsActive && wf.FirstTrigger() == nil {
		return ErrMissingTrigger
	}

	return nil
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

// Validation statuses.
const (
	StatusValid   = "VALID"
	StatusInvalid = "INVALID"
)

// ValidationReport is the structured outcome of an AI review of a workflow.
type ValidationReport struct {
	Status      string                 `json:"status"`
	Issues      []ValidationIssue      `json:"issues"`
	Suggestions []ValidationSuggestion `json:"suggestions"`
}

type ValidationIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	NodeID      string `json:"nodeId,omitempty"`
}

type ValidationSuggestion struct {
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

const validationPrompt = `You are a workflow automation expert. Analyze the following workflow for potential issues, overlaps, infinite loops, or invalid configurations.

Workflow:
%s

Provide a structured analysis. Use this exact format:

STATUS: VALID or INVALID

ISSUES:
- [type] | [severity] | [description] | [nodeId or "none"]
- (repeat for each issue, or write "None" if no issues)

SUGGESTIONS:
- [priority] | [description]
- (repeat for each suggestion, or write "None" if no suggestions)

Example:
STATUS: INVALID
ISSUES:
- cycle | HIGH | Infinite loop detected between nodes | node-123
- missing_connection | MEDIUM | Node is not connected to any output | node-456
SUGGESTIONS:
- HIGH | Remove the cycle by disconnecting one edge
- LOW | Consider adding error handling nodes`

// ValidateWorkflow asks the provider to review the workflow graph. Provider failures produce an
// INVALID report describing the outage rather than an error.
func ValidateWorkflow(ctx context.Context, provider Provider, workflow *models.Workflow) *ValidationReport {
	document, err := json.MarshalIndent(struct {
		Name  string         `json:"name"`
		Nodes []*models.Node `json:"nodes"`
		Edges []*models.Edge `json:"edges"`
	}{workflow.Name, workflow.Nodes, workflow.Edges}, "", "  ")
	if err != nil {
		return unavailableReport(err)
	}

	response, err := provider.Complete(ctx, fmt.Sprintf(validationPrompt, document), Options{MaxTokens: 1500, Temperature: 0.3})
	if err != nil {
		return unavailableReport(err)
	}

	defaultNodeID := ""
	if len(workflow.Nodes) > 0 && workflow.Nodes[0] != nil {
		defaultNodeID = workflow.Nodes[0].ID
	}

	return ParseValidationReport(response, defaultNodeID)
}

func unavailableReport(err error) *ValidationReport {
	return &ValidationReport{
		Status: StatusInvalid,
		Issues: []ValidationIssue{{
			Type:        "other",
			Severity:    "MEDIUM",
			Description: "AI validation unavailable: " + err.Error(),
		}},
		Suggestions: []ValidationSuggestion{{
			Priority:    "LOW",
			Description: "Try again later, or configure OPENAI_API_KEY and set AI_PROVIDER=openai as a fallback.",
		}},
	}
}

// ParseValidationReport reads the STATUS/ISSUES/SUGGESTIONS layout. Issues without a node id are
// attributed to defaultNodeID.
func ParseValidationReport(response, defaultNodeID string) *ValidationReport {
	report := &ValidationReport{
		Status:      StatusValid,
		Issues:      []ValidationIssue{},
		Suggestions: []ValidationSuggestion{},
	}

	section := ""

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "STATUS:"):
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(line, "STATUS:")), StatusInvalid) {
				report.Status = StatusInvalid
			} else {
				report.Status = StatusValid
			}
		case line == "ISSUES:":
			section = "issues"
		case line == "SUGGESTIONS:":
			section = "suggestions"
		case !strings.HasPrefix(line, "-") || line == "- None":
		case section == "issues":
			parts := splitFields(line)
			if len(parts) < 3 {
				continue
			}

			issue := ValidationIssue{
				Type:        orDefault(parts[0], "other"),
				Severity:    orDefault(parts[1], "MEDIUM"),
				Description: orDefault(parts[2], "Unknown issue"),
				NodeID:      defaultNodeID,
			}

			if len(parts) > 3 && parts[3] != "" && !strings.EqualFold(parts[3], "none") {
				issue.NodeID = parts[3]
			}

			report.Issues = append(report.Issues, issue)
		case section == "suggestions":
			parts := splitFields(line)
			if len(parts) < 2 {
				continue
			}

			report.Suggestions = append(report.Suggestions, ValidationSuggestion{
				Priority:    orDefault(parts[0], "MEDIUM"),
				Description: orDefault(parts[1], "Unknown suggestion"),
			})
		}
	}

	return report
}

func splitFields(line string) []string {
	parts := strings.Split(strings.TrimPrefix(line, "-"), "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

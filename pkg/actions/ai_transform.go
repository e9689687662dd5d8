package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

var aiTransformOptions = ai.Options{MaxTokens: 1000, Temperature: 0.3}

var transformInstructions = map[string]string{
	"extract":    "Extract structured data from this message",
	"summarize":  "Create a concise summary of this message",
	"categorize": "Categorize this message",
	"translate":  "Translate this message to English",
	"format":     "Reformat this message data",
}

// BuildAITransformPrompt returns the prompt of a transform type. ok is false for unknown types.
func BuildAITransformPrompt(cfg *models.AITransformAction, message string) (prompt string, ok bool) {
	if cfg.TransformType == "custom" {
		return fmt.Sprintf("%s\n\nData: \"%s\"\n\nReturn as %s", cfg.CustomPrompt, message, cfg.OutputFormat), true
	}

	instruction, ok := transformInstructions[cfg.TransformType]
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s and return as %s:\n\"%s\"", instruction, cfg.OutputFormat, message), true
}

// ParseTransformOutput keeps text output as is. JSON output is read from the first {...} of the
// completion, falling back to {"result": text}.
func ParseTransformOutput(outputFormat, response string) any {
	if outputFormat != "json" {
		return response
	}

	match := jsonObject.FindString(response)
	if match == "" {
		return map[string]any{"result": response}
	}

	var parsed any
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return map[string]any{"result": response}
	}

	return parsed
}

func (d *Dispatcher) aiTransform(ctx context.Context, req *workflow.NodeRequest, cfg *models.AITransformAction) (*workflow.NodeOutcome, error) {
	const failed = "AI data transformation failed"

	triggerData, err := requireTrigger(req, "AI transformation")
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	prompt, ok := BuildAITransformPrompt(cfg, stringField(triggerData, "message", ""))
	if !ok {
		return nil, workflow.NewActionError(failed, fmt.Errorf("unknown transform type %q", cfg.TransformType))
	}

	response, err := d.ai.Complete(ctx, prompt, aiTransformOptions)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	transformed := ParseTransformOutput(cfg.OutputFormat, response)

	outcome := done(map[string]any{
		"message":         "AI data transformation completed",
		"transformType":   cfg.TransformType,
		"outputFormat":    cfg.OutputFormat,
		"transformedData": transformed,
		"variableName":    cfg.VariableName(),
	})

	if cfg.StoreResult {
		outcome.Variables = append(outcome.Variables, workflow.Variable{Name: cfg.VariableName(), Value: transformed})
	}

	d.loggerFrom(ctx).DebugContext(ctx, "AI transformation completed", "transform_type", cfg.TransformType, "stored", cfg.StoreResult)

	return outcome, nil
}

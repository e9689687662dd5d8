package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

// ErrNoTriggerData is returned when an AI condition runs before any trigger result exists.
// Unlike other node errors it aborts the current root's traversal.
var ErrNoTriggerData = errors.New("no trigger data available for AI evaluation")

// placeholderPrompt is the editor's default text; it is treated like an empty prompt.
const placeholderPrompt = "Evaluate this message based on your criteria"

var cannedPrompts = map[string]string{
	"sentiment": `Analyze the sentiment of this message. Is it positive (satisfied, happy, pleased, grateful, approving)? Answer ONLY with "true" if positive, or "false" if negative/neutral.`,
	"approval":  `Does this message indicate approval, agreement, acceptance, or positive response (yes, approved, agreed, confirmed)? Answer ONLY with "true" if yes, or "false" if no.`,
	"complaint": `Does this message indicate a complaint, issue, dissatisfaction, or negative feedback (angry, upset, problem, issue)? Answer ONLY with "true" if yes, or "false" if no.`,
}

const defaultCannedPrompt = `Analyze if this message expresses satisfaction, approval, or positive sentiment. Answer with ONLY "true" or "false".`

// AIEvaluationError wraps a provider failure during an AI condition.
type AIEvaluationError struct {
	AIType string
	Err    error
}

func (e *AIEvaluationError) Error() string {
	return fmt.Sprintf("AI evaluation failed: %v", e.Err)
}

func (e *AIEvaluationError) Unwrap() error {
	return e.Err
}

// AIEvaluation is the outcome of an AI condition.
type AIEvaluation struct {
	Result          bool   `json:"result"`
	AIResponse      string `json:"aiResponse"`
	MessageAnalyzed string `json:"messageAnalyzed"`
	Provider        string `json:"provider"`
	AIType          string `json:"aiType"`
}

// AIConditionEvaluator asks the AI provider a yes/no question about the triggering message.
type AIConditionEvaluator struct {
	provider ai.Provider
	logger   *slog.Logger
}

func NewAIConditionEvaluator(provider ai.Provider, logger *slog.Logger) *AIConditionEvaluator {
	return &AIConditionEvaluator{
		provider: provider,
		logger:   logger,
	}
}

// BuildAIConditionPrompt returns the full prompt sent for an AI condition.
func BuildAIConditionPrompt(cfg *models.AICondition, message string) string {
	prompt := strings.TrimSpace(cfg.Prompt)
	if prompt == "" || strings.Contains(prompt, placeholderPrompt) {
		prompt = defaultCannedPrompt
		if canned, ok := cannedPrompts[cfg.AIType]; ok {
			prompt = canned
		}
	}

	return fmt.Sprintf("%s\n\nMessage to analyze: \"%s\"\n\nAnswer with ONLY the word \"true\" or \"false\". Nothing else.", prompt, message)
}

// ParseAIBoolean reads a loosely formatted true/false answer. Anything unrecognized is false.
func ParseAIBoolean(response string) bool {
	text := strings.ToLower(strings.TrimSpace(response))

	return strings.Contains(text, "true") || text == "yes" || text == "1"
}

func (e *AIConditionEvaluator) Evaluate(ctx context.Context, cfg *models.AICondition, triggerData map[string]any) (*AIEvaluation, error) {
	message, _ := triggerData["message"].(string)

	response, err := e.provider.Complete(ctx, BuildAIConditionPrompt(cfg, message), ai.Options{MaxTokens: 5, Temperature: 0.1})
	if err != nil {
		return nil, &AIEvaluationError{AIType: cfg.AIType, Err: err}
	}

	result := ParseAIBoolean(response)

	e.logger.DebugContext(ctx, "AI condition evaluated",
		"ai_type", cfg.AIType,
		"response", response,
		"result", result)

	return &AIEvaluation{
		Result:          result,
		AIResponse:      strings.ToLower(strings.TrimSpace(response)),
		MessageAnalyzed: message,
		Provider:        e.provider.Name(),
		AIType:          cfg.AIType,
	}, nil
}

package actions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

var (
	aiChatOptions       = ai.Options{MaxTokens: 500, Temperature: 0.7}
	aiChatRepairOptions = ai.Options{MaxTokens: 250, Temperature: 0.4}
)

var chatContexts = map[string]string{
	"complaint": "The user has expressed a complaint or issue. Generate an empathetic response acknowledging their concern and offering help.",
	"approval":  "The user has approved or agreed to something. Generate a grateful confirmation message.",
	"inquiry":   "The user is asking a question. Generate a helpful response answering their inquiry.",
	"feedback":  "The user has provided feedback. Generate a response thanking them and acknowledging their feedback.",
	"response":  "Generate a direct, contextual response to the user's message.",
}

var lengthGuidance = map[string]string{
	"short":  "1-2 sentences",
	"medium": "2-3 sentences",
	"long":   "3-5 sentences",
}

// sentenceEnd matches text ending in sentence punctuation, optionally followed by closing quotes
// or brackets.
var sentenceEnd = regexp.MustCompile(`[.!?][\s"')\]]*$`)

// chatRequest is what the reply prompt is built from.
type chatRequest struct {
	Message    string
	SenderName string
	Platform   string
}

func newChatRequest(triggerData map[string]any) chatRequest {
	return chatRequest{
		Message:    stringField(triggerData, "message", ""),
		SenderName: stringField(triggerData, "senderName", "User"),
		Platform:   stringField(triggerData, "platform", "unknown"),
	}
}

func lengthFor(cfg *models.AIChatAction) string {
	if guidance, ok := lengthGuidance[cfg.MessageLength]; ok {
		return guidance
	}

	return "medium"
}

func BuildAIChatPrompt(cfg *models.AIChatAction, req chatRequest) string {
	description := cfg.CustomPrompt
	if canned, ok := chatContexts[cfg.ContextType]; ok {
		description = canned
	}

	emoji := "Do not include emojis."
	if cfg.IncludeEmoji {
		emoji = "Include relevant emojis to make the message engaging."
	}

	var b strings.Builder

	b.WriteString("Generate a chat message reply with the following requirements:\n\n")
	fmt.Fprintf(&b, "Context: %s\n\n", description)
	fmt.Fprintf(&b, "Original Message: \"%s\"\n", req.Message)
	fmt.Fprintf(&b, "User Name: %s\n", req.SenderName)
	fmt.Fprintf(&b, "Platform: %s\n\n", req.Platform)
	fmt.Fprintf(&b, "Tone: %s\n", cfg.Tone)
	fmt.Fprintf(&b, "Length: %s\n", lengthFor(cfg))
	b.WriteString(emoji + "\n\n")
	b.WriteString("The reply MUST end with a complete sentence. Ensure the final character is '.', '!' or '?'. Do not end mid-sentence.\n\n")
	b.WriteString("Generate a natural, conversational message that feels like a direct reply. Keep it concise and appropriate for the platform.")

	return b.String()
}

func BuildAIChatRepairPrompt(cfg *models.AIChatAction, req chatRequest, draft string) string {
	emoji := "Do not include emojis."
	if cfg.IncludeEmoji {
		emoji = "Include relevant emojis."
	}

	var b strings.Builder

	b.WriteString("You wrote this chat reply but it appears to be cut off mid-sentence.\n\n")
	b.WriteString("Return the FULL corrected reply (starting from the beginning) and ensure it ends with a complete sentence.\n\n")
	fmt.Fprintf(&b, "Original message to reply to: \"%s\"\n\n", req.Message)
	fmt.Fprintf(&b, "Draft reply (cut off): \"%s\"\n\n", draft)
	fmt.Fprintf(&b, "Tone: %s\n", cfg.Tone)
	fmt.Fprintf(&b, "Length: %s\n", lengthFor(cfg))
	b.WriteString(emoji + "\n\n")
	b.WriteString("Output ONLY the final reply text.")

	return b.String()
}

// EndsWithSentence reports whether a reply ends in sentence punctuation.
func EndsWithSentence(reply string) bool {
	return sentenceEnd.MatchString(reply)
}

// generateReply asks for a reply and, when it looks cut off, asks once more for a complete one.
// An empty or failed repair keeps the draft.
func (d *Dispatcher) generateReply(ctx context.Context, cfg *models.AIChatAction, req chatRequest) (string, error) {
	response, err := d.ai.Complete(ctx, BuildAIChatPrompt(cfg, req), aiChatOptions)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(response)
	if reply == "" || EndsWithSentence(reply) {
		return reply, nil
	}

	repaired, err := d.ai.Complete(ctx, BuildAIChatRepairPrompt(cfg, req, reply), aiChatRepairOptions)
	if err != nil {
		d.loggerFrom(ctx).WarnContext(ctx, "chat reply repair failed, keeping draft", "error", err)

		return reply, nil
	}

	if repaired = strings.TrimSpace(repaired); repaired != "" {
		return repaired, nil
	}

	return reply, nil
}

func (d *Dispatcher) aiChat(ctx context.Context, req *workflow.NodeRequest, cfg *models.AIChatAction) (*workflow.NodeOutcome, error) {
	const failed = "AI chat message generation/sending failed"

	triggerData, err := requireTrigger(req, "AI chat message generation")
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	chat := newChatRequest(triggerData)
	recipient := stringField(triggerData, "sender", "")
	platform := strings.ToLower(chat.Platform)

	reply, err := d.generateReply(ctx, cfg, chat)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	credentials, err := d.integration(ctx, req.UserID, platform)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	if err := d.chat.Send(ctx, platform, recipient, reply, credentials); err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	d.loggerFrom(ctx).InfoContext(ctx, "AI chat reply sent", "platform", platform)

	return done(map[string]any{
		"message":       "AI chat message generated and sent successfully",
		"platform":      chat.Platform,
		"recipient":     recipient,
		"recipientName": chat.SenderName,
		"chatMessage":   reply,
		"contextType":   cfg.ContextType,
		"tone":          cfg.Tone,
	}), nil
}

package actions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

var aiSMSOptions = ai.Options{MaxTokens: 200, Temperature: 0.7}

var smsContexts = map[string]string{
	"alert":        "Generate an urgent alert SMS message",
	"confirmation": "Generate a confirmation SMS message",
	"reminder":     "Generate a reminder SMS message",
	"followup":     "Generate a follow-up SMS message",
}

func BuildAISMSPrompt(cfg *models.AISMSNotification, message string) string {
	description := cfg.CustomMessage
	if canned, ok := smsContexts[cfg.ContextType]; ok {
		description = canned
	}

	link := "Do not include links"
	if cfg.IncludeLink {
		link = "Include this link: " + cfg.LinkURL
	}

	return fmt.Sprintf("%s\n\nMessage context: \"%s\"\nCharacter limit: %d characters\n%s\n\nGenerate a concise SMS message that fits within the character limit.",
		description, message, cfg.Limit(), link)
}

// aiSMS only generates the text; delivery to a phone network is not performed.
func (d *Dispatcher) aiSMS(ctx context.Context, req *workflow.NodeRequest, cfg *models.AISMSNotification) (*workflow.NodeOutcome, error) {
	const failed = "AI SMS generation failed"

	triggerData, err := requireTrigger(req, "AI SMS generation")
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	response, err := d.ai.Complete(ctx, BuildAISMSPrompt(cfg, stringField(triggerData, "message", "")), aiSMSOptions)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	sms := truncate(strings.TrimSpace(response), cfg.Limit())

	recipient := cfg.RecipientPhone
	if recipient == "" {
		recipient = stringField(triggerData, "sender", "")
	}

	return done(map[string]any{
		"message":        "AI SMS generated successfully",
		"smsMessage":     sms,
		"recipientPhone": recipient,
		"contextType":    cfg.ContextType,
		"characterCount": utf8.RuneCountInString(sms),
		"characterLimit": cfg.Limit(),
	}), nil
}

package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

const (
	fallbackRecipient    = "customer@example.com"
	fallbackEmailSubject = "Response to your message"
	previewLength        = 100
)

var aiEmailOptions = ai.Options{MaxTokens: 1000, Temperature: 0.7}

var emailContexts = map[string]string{
	"complaint": "The customer has filed a complaint or expressed dissatisfaction. Write an empathetic response acknowledging their concern and offering a solution.",
	"approval":  "The customer has approved or agreed to something. Write a grateful confirmation email.",
	"inquiry":   "The customer is asking a question. Write a helpful response answering their inquiry.",
	"feedback":  "The customer has provided feedback. Write a response thanking them and addressing their feedback.",
}

// jsonObject matches the outermost {...} of a completion.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// GeneratedEmail is the email the provider wrote.
type GeneratedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Preview string `json:"preview"`
}

// BuildAIEmailPrompt asks for a JSON encoded reply to the triggering message.
func BuildAIEmailPrompt(cfg *models.AIEmailAction, triggerData map[string]any) string {
	description := cfg.CustomContext
	if canned, ok := emailContexts[cfg.ContextType]; ok {
		description = canned
	}

	callToAction := "Do not include a call to action."
	if cfg.IncludeCallToAction {
		callToAction = "Include this call to action: " + cfg.CallToActionText
	}

	var b strings.Builder

	b.WriteString("Generate a professional email response with the following requirements:\n\n")
	fmt.Fprintf(&b, "Context: %s\n\n", description)
	fmt.Fprintf(&b, "Customer Message: \"%s\"\n", stringField(triggerData, "message", ""))
	fmt.Fprintf(&b, "Customer Name: %s\n", stringField(triggerData, "senderName", "Customer"))
	fmt.Fprintf(&b, "Platform: %s\n\n", stringField(triggerData, "platform", "unknown"))
	fmt.Fprintf(&b, "Tone: %s\n\n", cfg.Tone)
	b.WriteString(callToAction + "\n\n")
	b.WriteString(`Generate a complete email with:
1. Appropriate subject line
2. Professional greeting
3. Body that addresses the customer's message
4. Closing

Format your response as JSON:
{
  "subject": "email subject",
  "body": "email body text",
  "preview": "short preview of the email"
}`)

	return b.String()
}

// ParseGeneratedEmail reads the JSON object out of a completion. Anything unparsable becomes the
// body of an email with a generic subject.
func ParseGeneratedEmail(response string) GeneratedEmail {
	candidate := response
	if match := jsonObject.FindString(response); match != "" {
		candidate = match
	}

	var email GeneratedEmail
	if err := json.Unmarshal([]byte(candidate), &email); err != nil {
		return GeneratedEmail{
			Subject: fallbackEmailSubject,
			Body:    response,
			Preview: truncate(response, previewLength),
		}
	}

	return email
}

func (d *Dispatcher) aiEmail(ctx context.Context, req *workflow.NodeRequest, cfg *models.AIEmailAction) (*workflow.NodeOutcome, error) {
	const failed = "AI email generation/sending failed"

	triggerData, err := requireTrigger(req, "AI email generation")
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	recipient := cfg.RecipientEmail
	if recipient == "" {
		recipient = stringField(triggerData, "sender", fallbackRecipient)
	}

	response, err := d.ai.Complete(ctx, BuildAIEmailPrompt(cfg, triggerData), aiEmailOptions)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	generated := ParseGeneratedEmail(response)

	credentials, err := d.integration(ctx, req.UserID, models.IntegrationEmail)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	smtp, err := messaging.SMTPConfigFromCredentials(credentials)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	from := cfg.FromEmail
	if from == "" {
		from = smtp.Username
	}

	err = d.mailer.Send(ctx, smtp, &messaging.Email{
		From:    from,
		To:      []string{recipient},
		Subject: generated.Subject,
		Body:    generated.Body,
	})
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	d.loggerFrom(ctx).InfoContext(ctx, "AI email sent", "context_type", cfg.ContextType)

	return done(map[string]any{
		"message":     "AI email generated and sent successfully",
		"to":          recipient,
		"subject":     generated.Subject,
		"contextType": cfg.ContextType,
		"tone":        cfg.Tone,
		"preview":     generated.Preview,
	}), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

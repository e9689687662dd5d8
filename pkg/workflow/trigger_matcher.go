package workflow

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaMismatch is returned when a webhook body does not satisfy the trigger's JSON schema.
var ErrSchemaMismatch = errors.New("webhook body does not match schema")

// MatchWebhook returns the first active workflow whose first trigger node is a webhook with
// webhookID in its URL and, when the trigger names a method, the same method.
func MatchWebhook(workflows []*models.Workflow, webhookID, method string) *models.Workflow {
	if webhookID == "" {
		return nil
	}

	for _, wf := range workflows {
		if wf == nil || !wf.IsActive {
			continue
		}

		cfg := wf.TriggerConfig()
		if cfg == nil || cfg.Webhook == nil {
			continue
		}

		webhook := cfg.Webhook
		if webhook.URL == "" || !strings.Contains(webhook.URL, webhookID) {
			continue
		}

		if webhook.Method != "" && !strings.EqualFold(webhook.Method, method) {
			continue
		}

		return wf
	}

	return nil
}

// ValidateWebhookBody checks body against the trigger's schema. Triggers without a schema accept anything.
func ValidateWebhookBody(trigger *models.WebhookTrigger, body any) error {
	if trigger == nil || len(trigger.Schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(trigger.Schema),
		gojsonschema.NewGoLoader(body),
	)
	if err != nil {
		return fmt.Errorf("webhook schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(details, "; "))
}

// MatchChat returns every active workflow whose first chat trigger accepts the message.
func MatchChat(workflows []*models.Workflow, msg *models.ChatMessage) []*models.Workflow {
	var matched []*models.Workflow

	for _, wf := range workflows {
		if wf == nil || !wf.IsActive {
			continue
		}

		cfg := wf.TriggerConfig()
		if cfg == nil || cfg.ChatMessage == nil {
			continue
		}

		if ChatTriggerMatches(cfg.ChatMessage, msg) {
			matched = append(matched, wf)
		}
	}

	return matched
}

// ChatTriggerMatches applies the platform, channel and keyword filters of one chat trigger.
func ChatTriggerMatches(trigger *models.ChatMessageTrigger, msg *models.ChatMessage) bool {
	if trigger.Platform != msg.Platform {
		return false
	}

	if target := strings.TrimSpace(trigger.ChannelOrPerson); target != "" {
		source := firstNonEmpty(msg.Channel, msg.From, msg.User)
		if digitsOnly(target) != digitsOnly(source) {
			return false
		}
	}

	matchType := trigger.MatchType
	if matchType == "" {
		matchType = models.MatchTypeContains
	}

	if strings.TrimSpace(trigger.Keywords) == "" || matchType == models.MatchTypeAny {
		return true
	}

	var keywords []string

	for _, keyword := range strings.Split(trigger.Keywords, ",") {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	if len(keywords) == 0 {
		return false
	}

	text := strings.ToLower(msg.Text)

	for _, keyword := range keywords {
		switch matchType {
		case models.MatchTypeExact:
			if text == keyword {
				return true
			}
		case models.MatchTypeStartsWith:
			if strings.HasPrefix(text, keyword) {
				return true
			}
		default:
			if strings.Contains(text, keyword) {
				return true
			}
		}
	}

	return false
}

func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}

		return -1
	}, value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerType discriminates the trigger sub-configurations.
type TriggerType string

const (
	TriggerTypeChatMessage TriggerType = "chatMessage"
	TriggerTypeWebhook     TriggerType = "webhook"
	TriggerTypeSchedule    TriggerType = "schedule"
	TriggerTypeManual      TriggerType = "manually"
)

// Keyword match modes of a chat trigger.
const (
	MatchTypeExact      = "exact"
	MatchTypeStartsWith = "startsWith"
	MatchTypeContains   = "contains"
	MatchTypeAny        = "any"
)

// TriggerConfig is the tagged union of trigger node configurations.
type TriggerConfig struct {
	Type        TriggerType         `json:"type"`
	ChatMessage *ChatMessageTrigger `json:"chatMessage,omitempty"`
	Webhook     *WebhookTrigger     `json:"webhook,omitempty"`
	Schedule    *ScheduleConfig     `json:"schedule,omitempty"`
	Manually    *ManualTrigger      `json:"manually,omitempty"`
}

// ChatMessageTrigger fires on inbound chat messages from one platform.
type ChatMessageTrigger struct {
	Platform        string `json:"platform"`
	ChannelOrPerson string `json:"channelOrPerson,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	MatchType       string `json:"matchType,omitempty"`
}

// WebhookTrigger fires on HTTP deliveries whose URL carries the webhook id.
type WebhookTrigger struct {
	URL    string `json:"url"`
	Method string `json:"method,omitempty"`

	// Schema optionally constrains the delivered body with a JSON schema document.
	Schema map[string]any `json:"schema,omitempty"`
}

// ManualTrigger has no settings; it exists so the discriminant has a payload.
type ManualTrigger struct{}

type triggerConfigAlias TriggerConfig

// UnmarshalJSON decodes the union and fills in the discriminant when a legacy document omits it.
func (c *TriggerConfig) UnmarshalJSON(data []byte) error {
	var alias triggerConfigAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*c = TriggerConfig(alias)

	return c.normalize()
}

func (c *TriggerConfig) normalize() error {
	if c.Type == "" {
		switch {
		case c.ChatMessage != nil:
			c.Type = TriggerTypeChatMessage
		case c.Webhook != nil:
			c.Type = TriggerTypeWebhook
		case c.Schedule != nil:
			c.Type = TriggerTypeSchedule
		case c.Manually != nil:
			c.Type = TriggerTypeManual
		}

		return nil
	}

	switch c.Type {
	case TriggerTypeChatMessage:
		if c.ChatMessage == nil {
			c.ChatMessage = &ChatMessageTrigger{}
		}
	case TriggerTypeWebhook:
		if c.Webhook == nil {
			return fmt.Errorf("trigger type %q requires a webhook config", c.Type)
		}
	case TriggerTypeSchedule:
		if c.Schedule == nil {
			return fmt.Errorf("trigger type %q requires a schedule config", c.Type)
		}
	case TriggerTypeManual:
		if c.Manually == nil {
			c.Manually = &ManualTrigger{}
		}
	}

	return nil
}

// SampleData builds a representative payload for ad-hoc runs that were not started by a real event.
func (c *TriggerConfig) SampleData(now time.Time) map[string]any {
	ts := now.UnixMilli()

	var triggerType TriggerType
	if c != nil {
		triggerType = c.Type
	}

	switch triggerType {
	case TriggerTypeChatMessage:
		platform, channel := "whatsapp", "Test Channel"

		if c.ChatMessage != nil {
			if c.ChatMessage.Platform != "" {
				platform = c.ChatMessage.Platform
			}

			if c.ChatMessage.ChannelOrPerson != "" {
				channel = c.ChatMessage.ChannelOrPerson
			}
		}

		return map[string]any{
			"message":    "This is approved",
			"sender":     "+1234567890",
			"senderName": "Test User",
			"platform":   platform,
			"channel":    channel,
			"timestamp":  ts,
			"messageId":  fmt.Sprintf("msg-%d", ts),
		}
	case TriggerTypeWebhook:
		return map[string]any{
			"body":    map[string]any{"test": "data"},
			"headers": map[string]any{"content-type": "application/json"},
			"method":  "POST",
			"path":    "/webhook",
		}
	case TriggerTypeSchedule:
		return map[string]any{
			"executionTime": ts,
			"scheduleName":  "Test Schedule",
		}
	case TriggerTypeManual:
		return map[string]any{
			"message":   "Manual trigger executed",
			"timestamp": ts,
		}
	default:
		return map[string]any{
			"timestamp": ts,
		}
	}
}

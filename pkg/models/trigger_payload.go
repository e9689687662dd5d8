package models

import (
	"strconv"
	"time"
)

// ChatMessage is an inbound message normalized from a chat platform delivery.
type ChatMessage struct {
	Platform   string
	Channel    string
	From       string
	User       string
	Chat       string
	Text       string
	SenderName string
	MessageID  string
	Timestamp  time.Time
}

// Sender is the first non-empty of From, User and Chat.
func (m *ChatMessage) Sender() string {
	for _, candidate := range []string{m.From, m.User, m.Chat} {
		if candidate != "" {
			return candidate
		}
	}

	return ""
}

// TriggerData converts the message into the payload seeded into trigger nodes.
func (m *ChatMessage) TriggerData(now time.Time) map[string]any {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = now
	}

	messageID := m.MessageID
	if messageID == "" {
		messageID = "msg-" + strconv.FormatInt(ts.UnixMilli(), 10)
	}

	return map[string]any{
		"message":    m.Text,
		"sender":     m.Sender(),
		"senderName": m.SenderName,
		"platform":   m.Platform,
		"channel":    m.Channel,
		"timestamp":  ts.UnixMilli(),
		"messageId":  messageID,
	}
}

// WebhookRequest is an inbound webhook delivery.
type WebhookRequest struct {
	Method  string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

func (r *WebhookRequest) TriggerData(now time.Time) map[string]any {
	headers := make(map[string]any, len(r.Headers))
	for key, value := range r.Headers {
		headers[key] = value
	}

	query := make(map[string]any, len(r.Query))
	for key, value := range r.Query {
		query[key] = value
	}

	return map[string]any{
		"method":    r.Method,
		"headers":   headers,
		"query":     query,
		"body":      r.Body,
		"timestamp": now.UnixMilli(),
	}
}

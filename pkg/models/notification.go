package models

import (
	"encoding/json"
	"fmt"
)

// NotificationType discriminates the notification sub-configurations.
type NotificationType string

const (
	NotificationTypeAISMS NotificationType = "aiSms"
	NotificationTypeEmail NotificationType = "email"
)

// DefaultSMSCharacterLimit applies when an AI SMS notification sets no limit.
const DefaultSMSCharacterLimit = 160

// NotificationConfig is the tagged union of notification node configurations.
type NotificationConfig struct {
	Type  NotificationType   `json:"type,omitempty"`
	AISMS *AISMSNotification `json:"aiSms,omitempty"`
	Email *EmailAction       `json:"email,omitempty"`
}

// AISMSNotification generates a short text message. Delivery is not performed.
type AISMSNotification struct {
	ContextType    string `json:"contextType,omitempty"`
	CustomMessage  string `json:"customMessage,omitempty"`
	RecipientPhone string `json:"recipientPhone,omitempty"`
	CharacterLimit int    `json:"characterLimit,omitempty"`
	IncludeLink    bool   `json:"includeLink,omitempty"`
	LinkURL        string `json:"linkUrl,omitempty"`
}

// Limit returns the configured character limit or the default.
func (n *AISMSNotification) Limit() int {
	if n.CharacterLimit <= 0 {
		return DefaultSMSCharacterLimit
	}

	return n.CharacterLimit
}

type notificationConfigAlias NotificationConfig

func (c *NotificationConfig) UnmarshalJSON(data []byte) error {
	var alias notificationConfigAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*c = NotificationConfig(alias)

	switch c.Type {
	case "":
		switch {
		case c.AISMS != nil:
			c.Type = NotificationTypeAISMS
		case c.Email != nil:
			c.Type = NotificationTypeEmail
		}
	case NotificationTypeAISMS:
		if c.AISMS == nil {
			c.AISMS = &AISMSNotification{}
		}
	case NotificationTypeEmail:
		if c.Email == nil {
			c.Email = &EmailAction{}
		}
	default:
		return fmt.Errorf("unknown notification type %q", c.Type)
	}

	return nil
}

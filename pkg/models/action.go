package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ActionType discriminates the action sub-configurations.
type ActionType string

const (
	ActionTypeAIEmail     ActionType = "aiEmail"
	ActionTypeAIChat      ActionType = "aiChat"
	ActionTypeAITransform ActionType = "aiTransform"
	ActionTypeEmail       ActionType = "email"
	ActionTypeHTTP        ActionType = "http"
	ActionTypeDatabase    ActionType = "database"
)

// ActionConfig is the tagged union of action node configurations.
type ActionConfig struct {
	Type        ActionType         `json:"type,omitempty"`
	AIEmail     *AIEmailAction     `json:"aiEmail,omitempty"`
	AIChat      *AIChatAction      `json:"aiChat,omitempty"`
	AITransform *AITransformAction `json:"aiTransform,omitempty"`
	Email       *EmailAction       `json:"email,omitempty"`
	HTTP        *HTTPAction        `json:"http,omitempty"`
	Database    *DatabaseAction    `json:"database,omitempty"`
}

// AIEmailAction generates an email reply to the triggering message and sends it over SMTP.
type AIEmailAction struct {
	ContextType         string `json:"contextType,omitempty"`
	CustomContext       string `json:"customContext,omitempty"`
	Tone                string `json:"tone,omitempty"`
	IncludeCallToAction bool   `json:"includeCallToAction,omitempty"`
	CallToActionText    string `json:"callToActionText,omitempty"`
	RecipientEmail      string `json:"recipientEmail,omitempty"`
	FromEmail           string `json:"fromEmail,omitempty"`
}

// AIChatAction generates a chat reply and sends it back on the trigger's platform.
type AIChatAction struct {
	ContextType   string `json:"contextType,omitempty"`
	CustomPrompt  string `json:"customPrompt,omitempty"`
	Tone          string `json:"tone,omitempty"`
	IncludeEmoji  bool   `json:"includeEmoji,omitempty"`
	MessageLength string `json:"messageLength,omitempty"`
}

// AITransformAction runs the trigger message through the AI provider.
type AITransformAction struct {
	TransformType      string `json:"transformType,omitempty"`
	CustomPrompt       string `json:"customPrompt,omitempty"`
	OutputFormat       string `json:"outputFormat,omitempty"`
	StoreResult        bool   `json:"storeResult,omitempty"`
	ResultVariableName string `json:"resultVariableName,omitempty"`
}

// DefaultResultVariableName names the stored transform result when none is configured.
const DefaultResultVariableName = "transformedData"

// VariableName returns the results key the transform output is stored under.
func (a *AITransformAction) VariableName() string {
	if a.ResultVariableName == "" {
		return DefaultResultVariableName
	}

	return a.ResultVariableName
}

// Attachment is a file fetched by URL and attached to an outgoing email.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EmailAction sends a plain email through the user's SMTP integration.
type EmailAction struct {
	To          string       `json:"to,omitempty"`
	Cc          string       `json:"cc,omitempty"`
	Bcc         string       `json:"bcc,omitempty"`
	ReplyTo     string       `json:"replyTo,omitempty"`
	Subject     string       `json:"subject,omitempty"`
	Body        string       `json:"body,omitempty"`
	IsHTML      bool         `json:"isHtml,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Priority    string       `json:"priority,omitempty"`
}

// HTTPAction performs an outbound HTTP request.
type HTTPAction struct {
	URL     string      `json:"url"`
	Method  string      `json:"method,omitempty"`
	Headers HTTPHeaders `json:"headers,omitempty"`
	Body    any         `json:"body,omitempty"`

	// Timeout is expressed in seconds.
	Timeout int `json:"timeout,omitempty"`

	Retry *HTTPRetry `json:"retry,omitempty"`
}

// HTTPRetry re-sends a request that failed in transport or answered with a 5xx status.
type HTTPRetry struct {
	Attempts int `json:"attempts"`

	// Delay between attempts, in seconds.
	Delay int `json:"delay"`
}

// DatabaseAction is recorded but not executed.
type DatabaseAction struct {
	DBType           string `json:"dbType,omitempty"`
	Operation        string `json:"operation,omitempty"`
	ConnectionString string `json:"connectionString,omitempty"`
	Database         string `json:"database,omitempty"`
	Collection       string `json:"collection,omitempty"`
	Query            string `json:"query,omitempty"`
	Data             string `json:"data,omitempty"`
}

// HTTPHeader is one request header as stored by the editor.
type HTTPHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HTTPHeaders decodes from either the editor's [{key,value}] list or a plain object.
type HTTPHeaders []HTTPHeader

// UnmarshalJSON accepts both header encodings. Object keys are sorted so the result is stable.
func (h *HTTPHeaders) UnmarshalJSON(data []byte) error {
	var list []HTTPHeader
	if err := json.Unmarshal(data, &list); err == nil {
		*h = list

		return nil
	}

	var object map[string]string
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("headers must be a list of {key,value} or an object: %w", err)
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	headers := make(HTTPHeaders, 0, len(keys))
	for _, key := range keys {
		headers = append(headers, HTTPHeader{Key: key, Value: object[key]})
	}

	*h = headers

	return nil
}

type actionConfigAlias ActionConfig

func (c *ActionConfig) UnmarshalJSON(data []byte) error {
	var alias actionConfigAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*c = ActionConfig(alias)

	return c.normalize()
}

// normalize derives a missing discriminant from the populated sub-config, in dispatch precedence order.
func (c *ActionConfig) normalize() error {
	if c.Type == "" {
		switch {
		case c.AIEmail != nil:
			c.Type = ActionTypeAIEmail
		case c.AIChat != nil:
			c.Type = ActionTypeAIChat
		case c.AITransform != nil:
			c.Type = ActionTypeAITransform
		case c.Email != nil:
			c.Type = ActionTypeEmail
		case c.HTTP != nil:
			c.Type = ActionTypeHTTP
		case c.Database != nil:
			c.Type = ActionTypeDatabase
		}

		return nil
	}

	switch c.Type {
	case ActionTypeAIEmail:
		if c.AIEmail == nil {
			c.AIEmail = &AIEmailAction{}
		}
	case ActionTypeAIChat:
		if c.AIChat == nil {
			c.AIChat = &AIChatAction{}
		}
	case ActionTypeAITransform:
		if c.AITransform == nil {
			c.AITransform = &AITransformAction{}
		}
	case ActionTypeEmail:
		if c.Email == nil {
			c.Email = &EmailAction{}
		}
	case ActionTypeHTTP:
		if c.HTTP == nil {
			return fmt.Errorf("action type %q requires an http config", c.Type)
		}
	case ActionTypeDatabase:
		if c.Database == nil {
			c.Database = &DatabaseAction{}
		}
	default:
		return fmt.Errorf("unknown action type %q", c.Type)
	}

	return nil
}

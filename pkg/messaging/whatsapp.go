package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const DefaultWhatsAppBaseURL = "https://graph.facebook.com/v18.0"

type WhatsApp struct {
	BaseURL string
	client  *http.Client
}

func NewWhatsApp(client *http.Client) *WhatsApp {
	return &WhatsApp{BaseURL: DefaultWhatsAppBaseURL, client: clientOrDefault(client)}
}

func (w *WhatsApp) Platform() string { return "whatsapp" }

// Send posts a text message through the Cloud API. Credentials need phoneNumberId and accessToken.
func (w *WhatsApp) Send(ctx context.Context, recipient, text string, credentials map[string]string) error {
	phoneNumberID := strings.TrimSpace(credentials["phoneNumberId"])
	accessToken := unquote(strings.TrimSpace(credentials["accessToken"]))

	if phoneNumberID == "" || accessToken == "" {
		return fmt.Errorf("WhatsApp: %w: missing phoneNumberId or accessToken", ErrIncompleteCredentials)
	}

	if recipient == "" {
		return ErrMissingRecipient
	}

	status, body, err := postJSON(ctx, w.client, w.BaseURL+"/"+phoneNumberID+"/messages",
		map[string]string{"Authorization": "Bearer " + accessToken},
		map[string]any{
			"messaging_product": "whatsapp",
			"to":                recipient,
			"type":              "text",
			"text":              map[string]string{"body": text},
		})
	if err != nil {
		return fmt.Errorf("WhatsApp request: %w", err)
	}

	if !isSuccess(status) {
		return &APIError{Platform: "WhatsApp", StatusCode: status, Body: string(body)}
	}

	return nil
}

// unquote strips one pair of matching quotes pasted around a token.
func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(value[1 : len(value)-1])
		}
	}

	return value
}

package messaging

import (
	"context"
	"fmt"
	"net/http"
)

const DefaultTelegramBaseURL = "https://api.telegram.org"

type Telegram struct {
	BaseURL string
	client  *http.Client
}

func NewTelegram(client *http.Client) *Telegram {
	return &Telegram{BaseURL: DefaultTelegramBaseURL, client: clientOrDefault(client)}
}

func (t *Telegram) Platform() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, recipient, text string, credentials map[string]string) error {
	botToken := credentials["botToken"]
	if botToken == "" {
		return fmt.Errorf("Telegram: %w: missing botToken", ErrIncompleteCredentials)
	}

	status, body, err := postJSON(ctx, t.client, t.BaseURL+"/bot"+botToken+"/sendMessage", nil,
		map[string]string{"chat_id": recipient, "text": text})
	if err != nil {
		return fmt.Errorf("Telegram request: %w", err)
	}

	if !isSuccess(status) {
		return &APIError{Platform: "Telegram", StatusCode: status, Body: string(body)}
	}

	return nil
}

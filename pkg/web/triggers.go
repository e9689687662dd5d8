package web

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/gofiber/fiber/v3"
)

// ReceiveWebhook runs the active workflow whose webhook trigger carries the id from the path.
func (h *APIHandlers) ReceiveWebhook(c fiber.Ctx) error {
	webhookID := c.Params("webhookId")

	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}

	entry, err := h.triggers.HandleWebhook(c.Context(), webhookID, &models.WebhookRequest{
		Method:  c.Method(),
		Headers: headers,
		Query:   c.Queries(),
		Body:    decodeBody(c.Body()),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WebhookResponse{
		Message:     "Workflow executed successfully",
		WebhookID:   webhookID,
		ExecutionID: entry.ID,
		Status:      entry.Status,
		Results:     entry.Results,
	})
}

// decodeBody returns the JSON value of the body, the raw text when it is not JSON, or nil when empty.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}

	return decoded
}

type slackPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     *struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		User    string `json:"user"`
		Text    string `json:"text"`
		TS      string `json:"ts"`
	} `json:"event"`
}

// ReceiveSlack answers the Events API url_verification handshake and runs workflows for message events.
func (h *APIHandlers) ReceiveSlack(c fiber.Ctx) error {
	var payload slackPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if payload.Challenge != "" {
		return c.JSON(fiber.Map{"challenge": payload.Challenge})
	}

	if payload.Event == nil || payload.Event.Type != "message" {
		return c.JSON(ChatWebhookResponse{OK: true})
	}

	return h.dispatchChat(c, &models.ChatMessage{
		Platform:  "slack",
		Channel:   payload.Event.Channel,
		User:      payload.Event.User,
		Text:      payload.Event.Text,
		MessageID: payload.Event.TS,
		Timestamp: unixSeconds(payload.Event.TS),
	})
}

// VerifyWhatsApp completes the Meta webhook subscription handshake.
func (h *APIHandlers) VerifyWhatsApp(c fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")

	if mode != "subscribe" || token != h.verifyToken {
		h.logger.WarnContext(c.Context(), "whatsapp webhook verification failed", "mode", mode)

		return forbidden(c, "Verification failed")
	}

	h.logger.InfoContext(c.Context(), "whatsapp webhook verified")

	return c.SendString(c.Query("hub.challenge"))
}

type whatsappPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ReceiveWhatsApp runs workflows for every text message in the delivery. Other message types are skipped.
func (h *APIHandlers) ReceiveWhatsApp(c fiber.Ctx) error {
	var payload whatsappPayload
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	var messages []*models.ChatMessage

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, message := range change.Value.Messages {
				if message.Type != "text" {
					h.logger.DebugContext(c.Context(), "skipping non-text whatsapp message", "type", message.Type)

					continue
				}

				msg := &models.ChatMessage{
					Platform:   "whatsapp",
					From:       message.From,
					SenderName: names[message.From],
					MessageID:  message.ID,
					Timestamp:  unixSeconds(message.Timestamp),
				}
				if message.Text != nil {
					msg.Text = message.Text.Body
				}

				messages = append(messages, msg)
			}
		}
	}

	return h.dispatchChat(c, messages...)
}

type telegramUpdate struct {
	Message *struct {
		MessageID int64  `json:"message_id"`
		Date      int64  `json:"date"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From *struct {
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
	} `json:"message"`
}

func (h *APIHandlers) ReceiveTelegram(c fiber.Ctx) error {
	var update telegramUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if update.Message == nil {
		return c.JSON(ChatWebhookResponse{OK: true})
	}

	message := update.Message
	msg := &models.ChatMessage{
		Platform:  "telegram",
		Chat:      strconv.FormatInt(message.Chat.ID, 10),
		Text:      message.Text,
		MessageID: strconv.FormatInt(message.MessageID, 10),
	}

	if message.Date > 0 {
		msg.Timestamp = time.Unix(message.Date, 0).UTC()
	}

	if message.From != nil {
		msg.User = message.From.Username
		msg.SenderName = message.From.FirstName
	}

	return h.dispatchChat(c, msg)
}

type discordMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    *struct {
		Username string `json:"username"`
	} `json:"author"`
}

func (h *APIHandlers) ReceiveDiscord(c fiber.Ctx) error {
	var message discordMessage
	if err := c.Bind().JSON(&message); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if message.Content == "" {
		return c.JSON(ChatWebhookResponse{OK: true})
	}

	msg := &models.ChatMessage{
		Platform:  "discord",
		Channel:   message.ChannelID,
		Text:      message.Content,
		MessageID: message.ID,
	}
	if message.Author != nil {
		msg.User = message.Author.Username
	}

	return h.dispatchChat(c, msg)
}

type teamsActivity struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ChannelID string `json:"channelId"`
	From      *struct {
		Name string `json:"name"`
	} `json:"from"`
}

func (h *APIHandlers) ReceiveTeams(c fiber.Ctx) error {
	var activity teamsActivity
	if err := c.Bind().JSON(&activity); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if activity.Text == "" {
		return c.JSON(ChatWebhookResponse{OK: true})
	}

	msg := &models.ChatMessage{
		Platform:  "teams",
		Channel:   activity.ChannelID,
		Text:      activity.Text,
		MessageID: activity.ID,
	}
	if activity.From != nil {
		msg.User = activity.From.Name
		msg.SenderName = activity.From.Name
	}

	return h.dispatchChat(c, msg)
}

func (h *APIHandlers) dispatchChat(c fiber.Ctx, messages ...*models.ChatMessage) error {
	executed := 0

	for _, msg := range messages {
		entries, err := h.triggers.HandleChat(c.Context(), msg)
		if err != nil {
			return handleServiceError(c, err)
		}

		executed += len(entries)
	}

	return c.JSON(ChatWebhookResponse{OK: true, Executed: executed})
}

// unixSeconds parses platform timestamps such as "1700000000" or Slack's "1700000000.000200".
// Unparsable values give the zero time.
func unixSeconds(value string) time.Time {
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(int64(seconds * 1000)).UTC()
}

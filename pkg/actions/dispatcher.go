// Package actions performs the side effects of action and notification nodes: AI generated
// replies, email, chat messages and outbound HTTP.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/log"
	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

var (
	ErrIntegrationNotConfigured = errors.New("integration not configured")
	ErrNoTriggerData            = errors.New("no trigger data available")
	errNoSMTPCredentials        = errors.New("No SMTP credentials found") //nolint:staticcheck // recorded verbatim in results
)

// CredentialSource hands out decrypted integration credentials.
type CredentialSource interface {
	GetCredentials(ctx context.Context, userID, integrationID string) (map[string]string, error)
}

// ChatSender delivers a reply on a chat platform.
type ChatSender interface {
	Send(ctx context.Context, platform, recipient, text string, credentials map[string]string) error
}

type Dependencies struct {
	Credentials CredentialSource
	AI          ai.Provider
	Chat        ChatSender
	Mailer      messaging.Mailer
	HTTPClient  *http.Client
}

// Dispatcher implements workflow.Dispatcher.
type Dispatcher struct {
	credentials CredentialSource
	ai          ai.Provider
	chat        ChatSender
	mailer      messaging.Mailer
	client      *http.Client
	logger      *slog.Logger
}

var _ workflow.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(deps Dependencies, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		credentials: deps.Credentials,
		ai:          deps.AI,
		chat:        deps.Chat,
		mailer:      deps.Mailer,
		client:      deps.HTTPClient,
		logger:      logger.With("module", "actions"),
	}

	if d.ai == nil {
		d.ai = ai.Unconfigured{}
	}

	if d.client == nil {
		d.client = messaging.NewHTTPClient(0)
	}

	if d.mailer == nil {
		d.mailer = messaging.NewSMTPMailer(logger)
	}

	if d.chat == nil {
		d.chat = messaging.DefaultRegistry(d.client)
	}

	return d
}

// ExecuteAction runs the first configured sub-action in the order
// aiEmail, aiChat, aiTransform, email, http, database.
func (d *Dispatcher) ExecuteAction(ctx context.Context, req *workflow.NodeRequest) (*workflow.NodeOutcome, error) {
	cfg := req.Node.Config.Action
	if cfg == nil {
		return done(map[string]any{"message": "Action executed"}), nil
	}

	ctx = d.withLogger(ctx, req, string(cfg.Type))

	switch {
	case cfg.AIEmail != nil:
		return d.aiEmail(ctx, req, cfg.AIEmail)
	case cfg.AIChat != nil:
		return d.aiChat(ctx, req, cfg.AIChat)
	case cfg.AITransform != nil:
		return d.aiTransform(ctx, req, cfg.AITransform)
	case cfg.Email != nil:
		return d.email(ctx, req, cfg.Email, models.NodeKindAction)
	case cfg.HTTP != nil:
		return d.httpRequest(ctx, req, cfg.HTTP)
	case cfg.Database != nil:
		return done(map[string]any{"message": "Database action executed", "config": cfg.Database}), nil
	default:
		return done(map[string]any{"message": "Action executed"}), nil
	}
}

// ExecuteNotification runs aiSms, then email; a bare notification only records that it was sent.
func (d *Dispatcher) ExecuteNotification(ctx context.Context, req *workflow.NodeRequest) (*workflow.NodeOutcome, error) {
	cfg := req.Node.Config.Notification
	if cfg == nil {
		return done(map[string]any{"message": "Notification sent"}), nil
	}

	ctx = d.withLogger(ctx, req, string(cfg.Type))

	switch {
	case cfg.AISMS != nil:
		return d.aiSMS(ctx, req, cfg.AISMS)
	case cfg.Email != nil:
		return d.email(ctx, req, cfg.Email, models.NodeKindNotification)
	default:
		return done(map[string]any{"message": "Notification sent"}), nil
	}
}

func (d *Dispatcher) withLogger(ctx context.Context, req *workflow.NodeRequest, handler string) context.Context {
	logger := log.FromContext(ctx, d.logger).With("node_id", req.Node.ID, "handler", handler)

	return log.ContextWithLogger(ctx, logger)
}

func (d *Dispatcher) loggerFrom(ctx context.Context) *slog.Logger {
	return log.FromContext(ctx, d.logger)
}

// integration fetches the user's credentials for one integration.
func (d *Dispatcher) integration(ctx context.Context, userID, integrationID string) (map[string]string, error) {
	if d.credentials == nil {
		return nil, fmt.Errorf("%s %w", integrationID, ErrIntegrationNotConfigured)
	}

	credentials, err := d.credentials.GetCredentials(ctx, userID, integrationID)
	if err != nil {
		if errors.Is(err, persistence.ErrIntegrationNotFound) {
			return nil, fmt.Errorf("%s %w", integrationID, ErrIntegrationNotConfigured)
		}

		return nil, err
	}

	return credentials, nil
}

// requireTrigger returns the trigger payload or an error naming what needed it.
func requireTrigger(req *workflow.NodeRequest, purpose string) (map[string]any, error) {
	if req.TriggerData == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoTriggerData, purpose)
	}

	return req.TriggerData, nil
}

func done(data map[string]any) *workflow.NodeOutcome {
	return &workflow.NodeOutcome{Data: data}
}

// stringField reads a trigger payload field as text.
func stringField(data map[string]any, key, fallback string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return fallback
	}

	text := fmt.Sprint(value)
	if text == "" {
		return fallback
	}

	return text
}

package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/template"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

const maxAttachmentBytes = 10 << 20

// email sends a plain email through the user's SMTP integration. Subject and body are
// rendered as templates over the trigger payload and the results recorded so far.
func (d *Dispatcher) email(ctx context.Context, req *workflow.NodeRequest, cfg *models.EmailAction, kind models.NodeKind) (*workflow.NodeOutcome, error) {
	failed := fmt.Sprintf("%s email sending failed", kind)

	credentials, err := d.integration(ctx, req.UserID, models.IntegrationEmail)
	if err != nil {
		if errors.Is(err, ErrIntegrationNotConfigured) {
			return nil, workflow.NewActionError("Email integration not configured", errNoSMTPCredentials)
		}

		return nil, workflow.NewActionError(failed, err)
	}

	smtp, err := messaging.SMTPConfigFromCredentials(credentials)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	data := template.Data(req.TriggerData, req.Results)

	subject := cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("Workflow %s", kind)
	}

	if subject, err = template.RenderString(subject, data); err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	body := cfg.Body
	if body == "" {
		body = fmt.Sprintf("%s from FlowForge workflow", kind)
	}

	if body, err = template.RenderString(body, data); err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	to := splitAddresses(cfg.To)
	if len(to) == 0 {
		to = []string{smtp.Username}
	}

	attachments, err := d.fetchAttachments(ctx, cfg.Attachments)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	msg := &messaging.Email{
		From:        smtp.Username,
		To:          to,
		Cc:          splitAddresses(cfg.Cc),
		Bcc:         splitAddresses(cfg.Bcc),
		ReplyTo:     strings.TrimSpace(cfg.ReplyTo),
		Subject:     subject,
		Body:        body,
		HTML:        cfg.IsHTML,
		Priority:    cfg.Priority,
		Attachments: attachments,
	}

	if err := d.mailer.Send(ctx, smtp, msg); err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	d.loggerFrom(ctx).InfoContext(ctx, "email sent", "recipients", len(to))

	return done(map[string]any{
		"message": fmt.Sprintf("%s email sent successfully", kind),
		"to":      strings.Join(to, ", "),
		"subject": subject,
	}), nil
}

// fetchAttachments downloads every attachment by URL.
func (d *Dispatcher) fetchAttachments(ctx context.Context, attachments []models.Attachment) ([]messaging.Attachment, error) {
	fetched := make([]messaging.Attachment, 0, len(attachments))

	for _, attachment := range attachments {
		if attachment.URL == "" {
			continue
		}

		content, err := d.download(ctx, attachment.URL)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", attachment.URL, err)
		}

		name := attachment.Name
		if name == "" {
			name = path.Base(attachment.URL)
		}

		fetched = append(fetched, messaging.Attachment{Name: name, Content: content})
	}

	return fetched, nil
}

func (d *Dispatcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
}

// splitAddresses accepts a comma separated recipient list.
func splitAddresses(raw string) []string {
	var addresses []string

	for _, part := range strings.Split(raw, ",") {
		if address := strings.TrimSpace(part); address != "" {
			addresses = append(addresses, address)
		}
	}

	return addresses
}

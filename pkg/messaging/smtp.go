package messaging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const (
	defaultSMTPPort = 587
	implicitTLSPort = 465
	smtpDialTimeout = 30 * time.Second
)

// SMTPConfig is the "email" integration: smtpHost, smtpPort, smtpUser and smtpPassword.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPConfigFromCredentials reads the email integration fields. The port defaults to 587.
func SMTPConfigFromCredentials(credentials map[string]string) (SMTPConfig, error) {
	cfg := SMTPConfig{
		Host:     strings.TrimSpace(credentials["smtpHost"]),
		Port:     defaultSMTPPort,
		Username: strings.TrimSpace(credentials["smtpUser"]),
		Password: credentials["smtpPassword"],
	}

	if raw := strings.TrimSpace(credentials["smtpPort"]); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid smtpPort %q: %w", raw, err)
		}

		cfg.Port = port
	}

	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("email: %w: smtpHost, smtpUser and smtpPassword are required", ErrIncompleteCredentials)
	}

	return cfg, nil
}

type Attachment struct {
	Name    string
	Content []byte
}

type Email struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	ReplyTo     string
	Subject     string
	Body        string
	HTML        bool
	Priority    string
	Attachments []Attachment
}

// Mailer delivers one email through the user's SMTP server.
type Mailer interface {
	Send(ctx context.Context, cfg SMTPConfig, email *Email) error
}

type SMTPMailer struct {
	logger *slog.Logger
}

func NewSMTPMailer(logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{logger: logger.With("module", "smtp")}
}

// BuildMessage converts an Email into a MIME message.
func BuildMessage(email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	if len(email.Cc) > 0 {
		if err := msg.Cc(email.Cc...); err != nil {
			return nil, fmt.Errorf("cc: %w", err)
		}
	}

	if len(email.Bcc) > 0 {
		if err := msg.Bcc(email.Bcc...); err != nil {
			return nil, fmt.Errorf("bcc: %w", err)
		}
	}

	if email.ReplyTo != "" {
		if err := msg.ReplyTo(email.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	}

	msg.Subject(email.Subject)
	msg.SetDate()
	msg.SetMessageID()

	switch strings.ToLower(email.Priority) {
	case "high":
		msg.SetImportance(mail.ImportanceHigh)
	case "low":
		msg.SetImportance(mail.ImportanceLow)
	}

	contentType := mail.TypeTextPlain
	if email.HTML {
		contentType = mail.TypeTextHTML
	}

	msg.SetBodyString(contentType, email.Body)

	for _, attachment := range email.Attachments {
		if err := msg.AttachReader(attachment.Name, bytes.NewReader(attachment.Content)); err != nil {
			return nil, fmt.Errorf("attach %s: %w", attachment.Name, err)
		}
	}

	return msg, nil
}

// Send dials the server and delivers the message. Port 465 uses implicit TLS, other ports
// upgrade with STARTTLS when the server offers it.
func (m *SMTPMailer) Send(ctx context.Context, cfg SMTPConfig, email *Email) error {
	msg, err := BuildMessage(email)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(smtpDialTimeout),
	}

	if cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.InfoContext(ctx, "email sent", "to", email.To, "subject", email.Subject)

	return nil
}

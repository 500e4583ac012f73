// Package notify delivers outbound email: appointment confirmations to
// visitors and the weekly digest to the office. Senders are swappable
// behind the Sender interface; SendGrid is used in production and LogSender
// when no API key is configured.
package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single email. When TemplateID is set the provider renders a
// stored template with Data; otherwise Text (and optionally HTML) is sent.
type Message struct {
	To         string
	ToName     string
	Subject    string
	Text       string
	HTML       string
	TemplateID string
	Data       map[string]any
}

// ErrNoRecipient is returned when a message has no valid destination.
var ErrNoRecipient = errors.New("notify: missing or invalid recipient")

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRE.MatchString(strings.TrimSpace(s))
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends email via the SendGrid v3 API.
type SendGridSender struct {
	send      func(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error)
	fromEmail string
	fromName  string
}

// NewSendGridSender returns nil when cfg.APIKey is empty.
func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Obispado SUD"
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	return &SendGridSender{
		send:      client.SendWithContext,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// Send builds a SendGrid message (dynamic template or plain content) and
// posts it. Any HTTP status >= 400 is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.send == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	if !ValidEmail(msg.To) {
		return ErrNoRecipient
	}

	resp, err := s.send(ctx, s.build(msg))
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("sendgrid send failed")
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		log.Error().Int("status", resp.StatusCode).Str("body", resp.Body).Msg("sendgrid returned error status")
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	log.Info().Str("subject", msg.Subject).Int("status", resp.StatusCode).Msg("email sent via sendgrid")
	return nil
}

func (s *SendGridSender) build(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, strings.TrimSpace(msg.To))

	if msg.TemplateID != "" {
		m := mail.NewV3Mail()
		m.SetFrom(from)
		m.SetTemplateID(msg.TemplateID)
		p := mail.NewPersonalization()
		p.AddTos(to)
		p.Subject = msg.Subject
		for k, v := range msg.Data {
			p.SetDynamicTemplateData(k, v)
		}
		m.AddPersonalizations(p)
		return m
	}

	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	return mail.NewSingleEmail(from, msg.Subject, to, msg.Text, html)
}

// LogSender logs messages instead of sending them.
type LogSender struct{}

// Send logs the message and always succeeds.
func (LogSender) Send(_ context.Context, msg Message) error {
	if !ValidEmail(msg.To) {
		return ErrNoRecipient
	}
	log.Info().
		Str("subject", msg.Subject).
		Str("template_id", msg.TemplateID).
		Int("text_len", len(msg.Text)).
		Msg("email sending disabled; message logged only")
	return nil
}

// NewSender picks SendGrid when an API key is configured and LogSender
// otherwise.
func NewSender(cfg SendGridConfig) Sender {
	if s := NewSendGridSender(cfg); s != nil {
		return s
	}
	return LogSender{}
}

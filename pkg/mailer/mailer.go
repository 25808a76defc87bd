package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
)

// ErrPermanent marks a delivery failure that will not succeed on retry.
var ErrPermanent = errors.New("permanent delivery failure")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	client   sendClient
	from     string
	fromName string
}

// New returns a SendGrid sender, or a log-only sender when no API key is configured.
func New(cfg config.SendgridConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return &LogSender{logg: logg}
	}
	return &SendGrid{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     cfg.DefaultFrom,
		fromName: cfg.FromName,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", msg.To)
	html := msg.HTML
	if html == "" {
		html = textToHTML(msg.Text)
	}
	resp, err := s.client.SendWithContext(ctx, mail.NewSingleEmail(from, msg.Subject, to, msg.Text, html))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	return classifyStatus(resp)
}

func classifyStatus(resp *rest.Response) error {
	if resp == nil {
		return fmt.Errorf("sendgrid send: empty response")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err := fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return err
}

// LogSender records emails in the log instead of sending them.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
		})
		s.logg.Info(ctx, "email delivery skipped: sendgrid api key not configured")
	}
	return nil
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrPermanent)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrPermanent)
	}
	return nil
}

func textToHTML(text string) string {
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br/>") + "</p>"
}

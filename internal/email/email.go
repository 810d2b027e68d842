package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/resend/resend-go/v2"
)

// Message is one outbound email. HTML and Text carry the same content.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Identity is the sender shown to recipients.
type Identity struct {
	From string
	Name string
}

func (i Identity) address() string {
	return formatAddress(i.Name, i.From)
}

// formatAddress quotes or encodes name so a user-chosen display name cannot
// inject extra recipients.
func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

// LogSender logs emails instead of sending them in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}

// ResendSender sends emails via the Resend API in staging and production.
type ResendSender struct {
	client *resend.Client
	from   Identity
}

func NewResendSender(apiKey string, from Identity) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from.address(),
		To:      []string{formatAddress(msg.ToName, msg.To)},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey string, from Identity, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from)
}

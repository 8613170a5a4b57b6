package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridStrategy delivers through the SendGrid API. Enabled only when an
// API key is configured.
type SendGridStrategy struct {
	client *sendgrid.Client
}

// NewSendGridStrategy creates a new SendGridStrategy.
func NewSendGridStrategy(apiKey string) (*SendGridStrategy, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	return &SendGridStrategy{client: sendgrid.NewSendClient(apiKey)}, nil
}

// Name implements Strategy.
func (s *SendGridStrategy) Name() string { return "sendgrid" }

// Send implements Strategy.
func (s *SendGridStrategy) Send(ctx context.Context, msg *Message) error {
	from := mail.NewEmail("", msg.From)
	to := mail.NewEmail("", msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

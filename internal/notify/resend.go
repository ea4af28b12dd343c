package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// DefaultFrom is Resend's shared sandbox sender.
const DefaultFrom = "onboarding@resend.dev"

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend delivers alerts by email.
type Resend struct {
	emails emailSender
	from   string
}

func NewResend(apiKey, from string) *Resend {
	client := resend.NewClient(apiKey)
	return newResend(client.Emails, from)
}

func newResend(emails emailSender, from string) *Resend {
	if from == "" {
		from = DefaultFrom
	}
	return &Resend{emails: emails, from: from}
}

func (r *Resend) Name() string { return "resend" }

func (r *Resend) Deliver(ctx context.Context, msg Message) error {
	_, err := r.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.Recipient, err)
	}
	return nil
}

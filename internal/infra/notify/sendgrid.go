package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"luxrent/internal/app/policies"
)

var ErrRecipientRequired = errors.New("notify: recipient email required")

// MailSender is the subset of the SendGrid client used here.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier e-mails refund confirmations to the customer.
type SendGridNotifier struct {
	client    MailSender
	fromEmail string
	fromName  string
}

func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return NewSendGridNotifierWithClient(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func NewSendGridNotifierWithClient(client MailSender, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (n *SendGridNotifier) SendRefundConfirmation(ctx context.Context, c policies.RefundConfirmation) error {
	if c.CustomerEmail == "" {
		return ErrRecipientRequired
	}
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", c.CustomerEmail)
	message := mail.NewSingleEmail(from, subject(c), to, plainText(c), htmlBody(c))
	message.SetHeader("X-Booking-Id", c.BookingID)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	return nil
}

var _ policies.Notifier = (*SendGridNotifier)(nil)

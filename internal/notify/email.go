// README: Email channel over SendGrid.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"gohappygo/internal/types"
)

// MailSender is satisfied by *sendgrid.Client.
type MailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type Email struct {
	client    MailSender
	directory Directory
	fromEmail string
	fromName  string
}

func NewSendGrid(apiKey, fromEmail, fromName string, directory Directory) *Email {
	return NewEmail(sendgrid.NewSendClient(apiKey), fromEmail, fromName, directory)
}

func NewEmail(client MailSender, fromEmail, fromName string, directory Directory) *Email {
	return &Email{client: client, directory: directory, fromEmail: fromEmail, fromName: fromName}
}

func (e *Email) Notify(ctx context.Context, userID types.ID, event Event, payload map[string]string) error {
	contact, err := e.directory.Contact(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify.Email: contact %s: %w", userID, err)
	}
	if contact.Email == "" {
		// nothing to send to; push still reaches the user
		return nil
	}
	msg := render(event, payload)
	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail(contact.Name, contact.Email)
	body := msg.Body + "\n\nThe GoHappyGo team"
	m := mail.NewSingleEmail(from, msg.Title, to, body, "<p>"+msg.Body+"</p>")

	resp, err := e.client.Send(m)
	if err != nil {
		return fmt.Errorf("notify.Email: send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify.Email: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

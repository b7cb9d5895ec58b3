// README: Push channel over Firebase Cloud Messaging. Each user's devices
// subscribe to the topic user_<uid>.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"gohappygo/internal/types"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Push struct {
	client MessageSender
}

func NewPush(client MessageSender) *Push {
	return &Push{client: client}
}

func Topic(userID types.ID) string { return "user_" + string(userID) }

func (p *Push) Notify(ctx context.Context, userID types.ID, event Event, payload map[string]string) error {
	msg := render(event, payload)
	data := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["type"] = string(event)

	_, err := p.client.Send(ctx, &messaging.Message{
		Topic: Topic(userID),
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		return fmt.Errorf("notify.Push: %s to %s: %w", event, userID, err)
	}
	return nil
}

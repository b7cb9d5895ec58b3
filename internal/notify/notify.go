// README: Booking notifications. Delivery is best effort; callers log failures
// and never roll back on them.
package notify

import (
	"context"
	"errors"
	"fmt"

	"gohappygo/internal/types"
)

type Event string

const (
	EventRequestCreated   Event = "request.created"
	EventRequestAccepted  Event = "request.accepted"
	EventRequestRejected  Event = "request.rejected"
	EventRequestCompleted Event = "request.completed"
	EventRequestCancelled Event = "request.cancelled"
	EventFundsReleased    Event = "funds.released"
)

type Notifier interface {
	Notify(ctx context.Context, userID types.ID, event Event, payload map[string]string) error
}

// Contact is what the email channel needs to reach a user.
type Contact struct {
	Email string
	Name  string
}

type Directory interface {
	Contact(ctx context.Context, userID types.ID) (Contact, error)
}

// Fanout delivers to every channel and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, userID types.ID, event Event, payload map[string]string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, userID, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, types.ID, Event, map[string]string) error { return nil }

type message struct {
	Title string
	Body  string
}

func render(event Event, payload map[string]string) message {
	ref := payload["request_id"]
	switch event {
	case EventRequestCreated:
		return message{"New booking request", fmt.Sprintf("You received a request for %s kg (ref %s).", payload["weight"], ref)}
	case EventRequestAccepted:
		return message{"Booking confirmed", fmt.Sprintf("Request %s was accepted. Amount held: %s.", ref, payload["amount"])}
	case EventRequestRejected:
		return message{"Request declined", fmt.Sprintf("Request %s was declined by the owner.", ref)}
	case EventRequestCompleted:
		return message{"Delivery completed", fmt.Sprintf("Request %s is complete.", ref)}
	case EventRequestCancelled:
		return message{"Booking cancelled", fmt.Sprintf("Request %s was cancelled.", ref)}
	case EventFundsReleased:
		return message{"Payment released", fmt.Sprintf("%s was released for request %s.", payload["amount"], ref)}
	}
	return message{"GoHappyGo", string(event)}
}

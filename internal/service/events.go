package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
)

// Broadcaster delivers realtime events to connected users
type Broadcaster interface {
	SendToUsers(userIDs []uuid.UUID, event *model.WSEvent)
	Broadcast(event *model.WSEvent)
}

// Pusher sends a push notification for a message to a user who is not reachable in realtime
type Pusher interface {
	NotifyMessage(ctx context.Context, receiverID uuid.UUID, msg *model.Message) error
}

// MediaRemover deletes uploaded media objects by URL
type MediaRemover interface {
	RemoveObjects(ctx context.Context, urls []string) error
}

type envelope struct {
	to    []uuid.UUID
	event *model.WSEvent
}

type push struct {
	to  uuid.UUID
	msg model.Message
}

// outbox collects side effects of a mutation. It is flushed only after the
// transaction commits.
type outbox struct {
	events []envelope
	pushes []push
	media  []string
}

func (o *outbox) emit(to []uuid.UUID, eventType string, payload interface{}) {
	o.events = append(o.events, envelope{
		to:    to,
		event: &model.WSEvent{Type: eventType, Payload: payload},
	})
}

func (o *outbox) notify(to uuid.UUID, msg *model.Message) {
	o.pushes = append(o.pushes, push{to: to, msg: *msg})
}

func (o *outbox) reset() {
	o.events = o.events[:0]
	o.pushes = o.pushes[:0]
	o.media = o.media[:0]
}

func (s *ChatService) flush(out *outbox) {
	for _, e := range out.events {
		s.events.SendToUsers(e.to, e.event)
	}

	if s.pusher != nil {
		for _, p := range out.pushes {
			p := p
			go func() {
				if err := s.pusher.NotifyMessage(context.Background(), p.to, &p.msg); err != nil {
					log.Printf("⚠️ Push notification to %s failed: %v", p.to, err)
				}
			}()
		}
	}

	if s.media != nil && len(out.media) > 0 {
		urls := append([]string(nil), out.media...)
		go func() {
			if err := s.media.RemoveObjects(context.Background(), urls); err != nil {
				log.Printf("⚠️ Failed to remove %d media objects: %v", len(urls), err)
			}
		}()
	}
}

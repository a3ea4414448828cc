// Package delivery keeps delivered/seen timestamps and the per-participant
// unread and seen bookkeeping of conversations.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/presence"
	"github.com/quocanhngo/gotalk-core/internal/repository"
)

// Tracker decides delivery based on who is online and visible
type Tracker struct {
	presence presence.Registry
}

func NewTracker(reg presence.Registry) *Tracker {
	return &Tracker{presence: reg}
}

// Batch is a group of messages in one conversation whose status changed together
type Batch struct {
	ConversationID uuid.UUID
	Participants   []uuid.UUID
	MessageIDs     []uuid.UUID
	At             time.Time
}

// StampOnCreate sets DeliveredAt to the creation time when a recipient can
// receive the message right now. For direct conversations that is the other
// participant; for groups any other member.
func (t *Tracker) StampOnCreate(conv *model.Conversation, msg *model.Message) bool {
	if len(t.Reachable(conv, msg.SenderID)) == 0 {
		return false
	}
	at := msg.CreatedAt
	msg.DeliveredAt = &at
	return true
}

// Reachable returns the participants other than senderID that are online and visible
func (t *Tracker) Reachable(conv *model.Conversation, senderID uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for _, p := range conv.Participants {
		if p.UserID != senderID && t.presence.IsOnline(p.UserID) {
			out = append(out, p.UserID)
		}
	}
	return out
}

// Unreachable returns the participants other than senderID that are offline or hidden
func (t *Tracker) Unreachable(conv *model.Conversation, senderID uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for _, p := range conv.Participants {
		if p.UserID != senderID && !t.presence.IsOnline(p.UserID) {
			out = append(out, p.UserID)
		}
	}
	return out
}

// RecordMessage applies a new message to the conversation: unread counters go
// up for everyone but the sender, the sender's resets, and seenBy empties.
func RecordMessage(conv *model.Conversation, msg *model.Message) {
	for i := range conv.Participants {
		p := &conv.Participants[i]
		if p.UserID == msg.SenderID {
			p.UnreadCount = 0
		} else {
			p.UnreadCount++
		}
		p.HasSeen = false
	}
	conv.LastMessage = msg.Snapshot()
	at := msg.CreatedAt
	conv.LastMessageAt = &at
}

// CanMarkSeen reports whether the last message was authored by someone other than readerID
func CanMarkSeen(conv *model.Conversation, readerID uuid.UUID) bool {
	sender := conv.LastMessage.SenderID
	return sender != nil && *sender != readerID
}

// MarkSeen stamps the reader's unseen messages and updates the reader's
// bookkeeping on conv. It returns false when there is nothing to mark.
func (t *Tracker) MarkSeen(ctx context.Context, messages repository.MessageStore, conv *model.Conversation, readerID uuid.UUID, at time.Time) (*Batch, bool, error) {
	if !CanMarkSeen(conv, readerID) {
		return nil, false, nil
	}
	p := conv.Participant(readerID)
	if p == nil {
		return nil, false, nil
	}

	ids, err := messages.MarkSeen(ctx, conv.ID, readerID, at)
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark messages seen: %w", err)
	}

	p.UnreadCount = 0
	p.HasSeen = true

	return &Batch{
		ConversationID: conv.ID,
		Participants:   conv.ParticipantIDs(),
		MessageIDs:     ids,
		At:             at,
	}, true, nil
}

// DeliverPending stamps every undelivered message addressed to userID in its
// direct conversations, returning one batch per conversation that changed.
func (t *Tracker) DeliverPending(ctx context.Context, messages repository.MessageStore, conversations []model.Conversation, userID uuid.UUID, at time.Time) ([]Batch, error) {
	batches := []Batch{}
	for i := range conversations {
		conv := &conversations[i]
		if !conv.IsDirect() || !conv.IsParticipant(userID) {
			continue
		}

		ids, err := messages.MarkDelivered(ctx, conv.ID, userID, at)
		if err != nil {
			return batches, fmt.Errorf("failed to mark messages delivered in %s: %w", conv.ID, err)
		}
		if len(ids) == 0 {
			continue
		}

		batches = append(batches, Batch{
			ConversationID: conv.ID,
			Participants:   conv.ParticipantIDs(),
			MessageIDs:     ids,
			At:             at,
		})
	}
	return batches, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by Save when the conversation changed since it was read.
	ErrConflict = errors.New("conversation was modified concurrently")
)

// ConversationStore persists conversations and their participants
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindDirect(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	ListDirectByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	// Save writes the conversation and participant bookkeeping if the stored
	// version still matches conv.Version, then bumps it.
	Save(ctx context.Context, conv *model.Conversation) error
	// Delete removes the conversation with its participants, messages and attachments.
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageStore persists messages and their status timestamps
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error)
	// MarkDelivered stamps every undelivered message not sent by recipientID.
	MarkDelivered(ctx context.Context, conversationID, recipientID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	// MarkSeen stamps every unseen message not sent by readerID, filling
	// DeliveredAt where it is still empty.
	MarkSeen(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	AttachmentURLs(ctx context.Context, conversationID uuid.UUID) ([]string, error)
}

// Store groups the conversation stores under one transaction boundary
type Store interface {
	Conversations() ConversationStore
	Messages() MessageStore
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// RelationStore answers friend/block/restrict lookups and owns block and
// restriction edges
type RelationStore interface {
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	// IsBlocked and IsRestricted look at both directions.
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
	IsRestricted(ctx context.Context, a, b uuid.UUID) (bool, error)
	// Block also removes any friendship and pending friend requests between the pair.
	Block(ctx context.Context, blockerID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	Restrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error
	Unrestrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error
}

// GormStore implements Store on PostgreSQL
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Conversations() ConversationStore {
	return NewConversationRepository(s.db)
}

func (s *GormStore) Messages() MessageStore {
	return NewMessageRepository(s.db)
}

// Transaction runs fn with stores bound to a single database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message together with its attachments
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation returns paginated messages for a conversation (cursor-based)
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit)

	// Cursor-based pagination: get messages before a specific message
	if before != nil {
		var beforeMsg model.Message
		err := r.db.WithContext(ctx).Select("created_at").
			Where("id = ? AND conversation_id = ?", before, conversationID).
			First(&beforeMsg).Error
		if err != nil {
			return nil, translate(err)
		}
		query = query.Where("created_at < ?", beforeMsg.CreatedAt)
	}

	err := query.Find(&messages).Error
	return messages, err
}

// MarkDelivered stamps delivered_at on messages the recipient has not received yet
func (r *MessageRepository) MarkDelivered(ctx context.Context, conversationID, recipientID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND delivered_at IS NULL", conversationID, recipientID).
			Order("created_at ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&model.Message{}).
			Where("id IN ?", ids).
			Update("delivered_at", at).Error
	})
	return ids, err
}

// MarkSeen stamps seen_at (and a missing delivered_at) on messages the reader has not seen
func (r *MessageRepository) MarkSeen(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND seen_at IS NULL", conversationID, readerID).
			Order("created_at ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&model.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"seen_at":      at,
				"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
			}).Error
	})
	return ids, err
}

// AttachmentURLs lists media URLs referenced by a conversation's messages
func (r *MessageRepository) AttachmentURLs(ctx context.Context, conversationID uuid.UUID) ([]string, error) {
	urls := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.MessageAttachment{}).
		Joins("JOIN messages ON messages.id = message_attachments.message_id").
		Where("messages.conversation_id = ?", conversationID).
		Pluck("message_attachments.url", &urls).Error
	return urls, err
}

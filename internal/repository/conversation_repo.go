package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository handles database operations for Conversation
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func preloadParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	})
}

// Create creates a new conversation with its participants
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// FindByID finds a conversation by ID with participants
func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := preloadParticipants(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// FindDirect finds the direct conversation between two users
func (r *ConversationRepository) FindDirect(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := preloadParticipants(r.db.WithContext(ctx)).
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userA).
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userB).
		Where("conversations.type = ?", model.ConversationTypeDirect).
		First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ListByUser returns all conversations of a user, most recent activity first
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	conversations := []model.Conversation{}
	err := preloadParticipants(r.db.WithContext(ctx)).
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversation_participants.user_id = ?", userID).
		Order("conversations.last_message_at DESC NULLS LAST").
		Order("conversations.created_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// ListDirectByUser returns the direct conversations of a user
func (r *ConversationRepository) ListDirectByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	conversations := []model.Conversation{}
	err := preloadParticipants(r.db.WithContext(ctx)).
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversation_participants.user_id = ? AND conversations.type = ?", userID, model.ConversationTypeDirect).
		Find(&conversations).Error
	return conversations, err
}

// Save writes the whole conversation row guarded by its version column
func (r *ConversationRepository) Save(ctx context.Context, conv *model.Conversation) error {
	next := conv.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *conv
		row.Version = next
		row.Participants = nil

		res := tx.Model(&model.Conversation{ID: conv.ID}).
			Where("version = ?", conv.Version).
			Select("*").
			Omit("ID", "CreatedAt", clause.Associations).
			Updates(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		for _, p := range conv.Participants {
			err := tx.Model(&model.Participant{}).
				Where("conversation_id = ? AND user_id = ?", conv.ID, p.UserID).
				Updates(map[string]interface{}{
					"unread_count":     p.UnreadCount,
					"has_seen":         p.HasSeen,
					"last_message_day": p.LastMessageDay,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	conv.Version = next
	return nil
}

// Delete hard-deletes a conversation and everything hanging off it
func (r *ConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&model.Message{}).Select("id").Where("conversation_id = ?", id)

		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&model.MessageAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Participant{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of message content
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// Message represents a chat message. Only DeliveredAt and SeenAt change
// after creation, and SeenAt implies DeliveredAt.
type Message struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID   `json:"conversation_id" gorm:"type:uuid;index;not null"`
	SenderID       uuid.UUID   `json:"sender_id" gorm:"type:uuid;index;not null"`
	Content        string      `json:"content" gorm:"type:text"`
	Type           MessageType `json:"type" gorm:"type:varchar(20);default:'text'"`
	ReplyToID      *uuid.UUID  `json:"reply_to_id,omitempty" gorm:"type:uuid"`
	DeliveredAt    *time.Time  `json:"delivered_at"`
	SeenAt         *time.Time  `json:"seen_at"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`

	// Relations
	Attachments []MessageAttachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// Preview returns the snapshot text shown in conversation lists
func (m *Message) Preview() string {
	const maxPreview = 500
	if m.Content == "" && len(m.Attachments) > 0 {
		return "Sent an attachment"
	}
	runes := []rune(m.Content)
	if len(runes) > maxPreview {
		return string(runes[:maxPreview])
	}
	return m.Content
}

// Snapshot converts the message into a conversation's last-message preview
func (m *Message) Snapshot() MessageSnapshot {
	id := m.ID
	sender := m.SenderID
	createdAt := m.CreatedAt
	return MessageSnapshot{
		ID:        &id,
		Content:   m.Preview(),
		SenderID:  &sender,
		CreatedAt: &createdAt,
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentType defines the type of attachment
type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeVideo AttachmentType = "video"
	AttachmentTypeFile  AttachmentType = "file"
	AttachmentTypeAudio AttachmentType = "audio"
)

// MessageType is the message type implied by a message whose first
// attachment has this type. Unknown types fall back to file.
func (t AttachmentType) MessageType() MessageType {
	switch t {
	case AttachmentTypeImage:
		return MessageTypeImage
	case AttachmentTypeVideo:
		return MessageTypeVideo
	case AttachmentTypeAudio:
		return MessageTypeAudio
	default:
		return MessageTypeFile
	}
}

// MessageAttachment references a media object uploaded elsewhere.
// The URL is opaque to the messaging core.
type MessageAttachment struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MessageID uuid.UUID      `json:"message_id" gorm:"type:uuid;index;not null"`
	Type      AttachmentType `json:"type" gorm:"type:varchar(20);not null"`
	URL       string         `json:"url" gorm:"size:1000;not null"`
	FileName  string         `json:"file_name" gorm:"size:255"`
	FileSize  int64          `json:"file_size"`
	MimeType  string         `json:"mime_type" gorm:"size:100"`
	CreatedAt time.Time      `json:"created_at"`
}

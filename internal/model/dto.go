package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Conversation DTOs ==========

type CreateGroupRequest struct {
	Name      string      `json:"name" binding:"required,min=1,max=100"`
	MemberIDs []uuid.UUID `json:"member_ids" binding:"required,min=1"`
}

type DirectConversationRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
}

// ParticipantSnapshot is the public part of a membership row
type ParticipantSnapshot struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// ConversationSnapshot is returned from every mutating call and carried by
// realtime events.
type ConversationSnapshot struct {
	ID               uuid.UUID             `json:"id"`
	Type             ConversationType      `json:"type"`
	Name             string                `json:"name,omitempty"`
	Participants     []ParticipantSnapshot `json:"participants"`
	LastMessage      *MessageSnapshot      `json:"last_message,omitempty"`
	LastMessageAt    *time.Time            `json:"last_message_at,omitempty"`
	SeenBy           []uuid.UUID           `json:"seen_by"`
	UnreadCounts     map[uuid.UUID]int     `json:"unread_counts"`
	DirectRequest    *DirectRequest        `json:"direct_request,omitempty"`
	Streak           Streak                `json:"streak"`
	LastMessageDayBy map[uuid.UUID]string  `json:"last_message_day_by"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Snapshot renders the conversation with per-participant bookkeeping as maps
func (c *Conversation) Snapshot() ConversationSnapshot {
	snap := ConversationSnapshot{
		ID:               c.ID,
		Type:             c.Type,
		Name:             c.Name,
		Participants:     make([]ParticipantSnapshot, 0, len(c.Participants)),
		LastMessageAt:    c.LastMessageAt,
		SeenBy:           []uuid.UUID{},
		UnreadCounts:     make(map[uuid.UUID]int, len(c.Participants)),
		Streak:           c.Streak,
		LastMessageDayBy: make(map[uuid.UUID]string, len(c.Participants)),
		CreatedAt:        c.CreatedAt,
	}
	for _, p := range c.Participants {
		snap.Participants = append(snap.Participants, ParticipantSnapshot{
			UserID:   p.UserID,
			Role:     p.Role,
			JoinedAt: p.JoinedAt,
		})
		snap.UnreadCounts[p.UserID] = p.UnreadCount
		if p.HasSeen {
			snap.SeenBy = append(snap.SeenBy, p.UserID)
		}
		if p.LastMessageDay != "" {
			snap.LastMessageDayBy[p.UserID] = p.LastMessageDay
		}
	}
	if c.LastMessage.ID != nil {
		last := c.LastMessage
		snap.LastMessage = &last
	}
	if c.IsDirect() {
		req := c.Request
		snap.DirectRequest = &req
	}
	return snap
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Content     string            `json:"content" binding:"required_without=Attachments"`
	Type        MessageType       `json:"type"`
	ReplyToID   *uuid.UUID        `json:"reply_to_id"`
	Attachments []AttachmentInput `json:"attachments,omitempty" binding:"omitempty,dive"`
}

// AttachmentInput is used when sending a message with attachments
type AttachmentInput struct {
	URL      string         `json:"url" binding:"required"`
	Type     AttachmentType `json:"type" binding:"required"`
	FileName string         `json:"file_name"`
	FileSize int64          `json:"file_size"`
	MimeType string         `json:"mime_type"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor for pagination (message ID)
	Limit  int    `form:"limit,default=50"`
}

// SendMessageResponse is returned after a message is persisted
type SendMessageResponse struct {
	Conversation ConversationSnapshot `json:"conversation"`
	Message      Message              `json:"message"`
}

// ========== Presence DTOs ==========

type VisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

type OnlineUsersResponse struct {
	Count   int         `json:"count"`
	UserIDs []uuid.UUID `json:"user_ids"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Message   string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

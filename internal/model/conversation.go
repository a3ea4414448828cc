package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationType defines whether the conversation is direct (1-1) or group
type ConversationType string

const (
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

// RequestStatus is the gating state of a direct conversation between non-friends
type RequestStatus string

const (
	RequestStatusNone     RequestStatus = "none"
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestMessageCap is how many messages a requester may send before the
// responder accepts.
const RequestMessageCap = 3

// DirectRequest gates unsolicited contact in a direct conversation
type DirectRequest struct {
	Status                RequestStatus `json:"status" gorm:"type:varchar(20);default:'none'"`
	RequesterID           *uuid.UUID    `json:"requester_id,omitempty" gorm:"type:uuid"`
	ResponderID           *uuid.UUID    `json:"responder_id,omitempty" gorm:"type:uuid"`
	RequesterMessageCount int           `json:"requester_message_count" gorm:"default:0"`
	RespondedAt           *time.Time    `json:"responded_at,omitempty"`
	RespondedBy           *uuid.UUID    `json:"responded_by,omitempty" gorm:"type:uuid"`
}

// Streak is the per-conversation engagement counter
type Streak struct {
	Count          int    `json:"count" gorm:"default:0"`
	LastCountedDay string `json:"last_counted_day,omitempty" gorm:"size:10;default:''"` // day-key, empty = never counted
	MissLevel      int    `json:"miss_level" gorm:"default:0"`
}

// MessageSnapshot is the preview of the conversation's latest message
type MessageSnapshot struct {
	ID        *uuid.UUID `json:"id,omitempty" gorm:"type:uuid"`
	Content   string     `json:"content" gorm:"size:500"`
	SenderID  *uuid.UUID `json:"sender_id,omitempty" gorm:"type:uuid"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Conversation represents a chat conversation (direct or group).
// Direct conversations are hard-deleted together with their messages.
type Conversation struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type      ConversationType `json:"type" gorm:"type:varchar(20);default:'direct'"`
	Name      string           `json:"name" gorm:"size:100"` // group name, empty for direct
	CreatorID *uuid.UUID       `json:"creator_id,omitempty" gorm:"type:uuid"`
	Version   int64            `json:"-" gorm:"not null;default:0"` // optimistic concurrency

	Request       DirectRequest   `json:"direct_request" gorm:"embedded;embeddedPrefix:request_"`
	Streak        Streak          `json:"streak" gorm:"embedded;embeddedPrefix:streak_"`
	LastMessage   MessageSnapshot `json:"last_message" gorm:"embedded;embeddedPrefix:last_message_"`
	LastMessageAt *time.Time      `json:"last_message_at,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// MemberRole defines the role of a member in a conversation
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Participant is a user's membership in a conversation together with the
// per-user bookkeeping (unread counter, seen flag, last active day).
type Participant struct {
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;primaryKey;index"`
	Role           MemberRole `json:"role" gorm:"type:varchar(20);default:'member'"`
	JoinedAt       time.Time  `json:"joined_at"`
	UnreadCount    int        `json:"unread_count" gorm:"not null;default:0"`
	HasSeen        bool       `json:"has_seen" gorm:"not null;default:false"`
	LastMessageDay string     `json:"last_message_day,omitempty" gorm:"size:10;default:''"`
}

func (Participant) TableName() string {
	return "conversation_participants"
}

// IsDirect reports whether the conversation is a 1-1 conversation
func (c *Conversation) IsDirect() bool {
	return c.Type == ConversationTypeDirect
}

// Participant returns the membership row of userID, or nil.
func (c *Conversation) Participant(userID uuid.UUID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// IsParticipant checks if a user belongs to the conversation
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.Participant(userID) != nil
}

// ParticipantIDs returns member user IDs in join order
func (c *Conversation) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// OtherParticipant returns the counterpart of userID in a direct conversation
func (c *Conversation) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	if !c.IsDirect() {
		return uuid.Nil, false
	}
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p.UserID, true
		}
	}
	return uuid.Nil, false
}

// Clone returns a deep copy, safe to mutate without touching the original.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Participants = append([]Participant(nil), c.Participants...)
	return &cp
}

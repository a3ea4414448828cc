package model

import (
	"time"

	"github.com/google/uuid"
)

// WSEvent is the envelope of every realtime frame
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound event types
const (
	WSEventNewMessage           = "new-message"
	WSEventReadMessage          = "read-message"
	WSEventMessagesDelivered    = "messages-delivered"
	WSEventMessagesSeen         = "messages-seen"
	WSEventDirectRequestUpdated = "direct-request-updated"
	WSEventStreakUpdated        = "streak-updated"
	WSEventStreakMilestone      = "streak-milestone"
	WSEventStreakLost           = "streak-lost"
	WSEventConversationRemoved  = "conversation-removed"
	WSEventConversationCleared  = "conversation-cleared"
	WSEventOnlineUsers          = "online-users"
	WSEventError                = "error"
)

// Inbound event types
const (
	WSEventSendMessage = "send-message"
	WSEventMarkSeen    = "mark-seen"
	WSEventTyping      = "typing"
	WSEventStopTyping  = "stop-typing"
)

type NewMessageEvent struct {
	Conversation ConversationSnapshot `json:"conversation"`
	Message      Message              `json:"message"`
}

type ReadMessageEvent struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	UserID         uuid.UUID        `json:"user_id"`
	LastMessage    *MessageSnapshot `json:"last_message,omitempty"`
}

type MessagesDeliveredEvent struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	MessageIDs     []uuid.UUID `json:"message_ids"`
	DeliveredAt    time.Time   `json:"delivered_at"`
}

type MessagesSeenEvent struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	MessageIDs     []uuid.UUID `json:"message_ids"`
	SeenBy         uuid.UUID   `json:"seen_by"`
	SeenAt         time.Time   `json:"seen_at"`
}

type DirectRequestEvent struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	Request        DirectRequest `json:"request"`
}

type StreakUpdatedEvent struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	Count          int        `json:"count"`
	MissLevel      int        `json:"miss_level"`
	LastCountedDay string     `json:"last_counted_day,omitempty"`
	AtRisk         bool       `json:"at_risk"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	RecoveryMode   string     `json:"recovery_mode,omitempty"`
}

type StreakMilestoneEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Count          int       `json:"count"`
}

type StreakLostEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type ConversationRemovedEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	By             uuid.UUID `json:"by"`
}

type TypingEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
}

type OnlineUsersEvent struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Friendship is an accepted friend edge, stored once per pair with
// UserAID < UserBID. Owned by the friend-graph service.
type Friendship struct {
	UserAID   uuid.UUID `json:"user_a_id" gorm:"type:uuid;primaryKey"`
	UserBID   uuid.UUID `json:"user_b_id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendRequestStatus mirrors the friend-graph service's request states
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is a directed friend invitation
type FriendRequest struct {
	ID         uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SenderID   uuid.UUID           `json:"sender_id" gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID           `json:"receiver_id" gorm:"type:uuid;index;not null"`
	Status     FriendRequestStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Block is a directed block edge. Either direction denies direct messaging.
type Block struct {
	BlockerID uuid.UUID `json:"blocker_id" gorm:"type:uuid;primaryKey"`
	BlockedID uuid.UUID `json:"blocked_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`
}

// Restriction is a directed, private restriction edge
type Restriction struct {
	RestrictorID uuid.UUID `json:"restrictor_id" gorm:"type:uuid;primaryKey"`
	RestrictedID uuid.UUID `json:"restricted_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderedPair returns a and b sorted so a pair has a single canonical key.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

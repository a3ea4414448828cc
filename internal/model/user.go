package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the account record this service reads and writes.
// Registration and credentials are owned by the account service.
type User struct {
	ID                    uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                  string     `json:"name" gorm:"size:100;not null"`
	Email                 string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Avatar                string     `json:"avatar" gorm:"size:500;default:''"`
	IsNotificationEnabled bool       `json:"is_notification_enabled" gorm:"default:true"`
	ShowOnlineStatus      bool       `json:"show_online_status" gorm:"default:true"`
	IsOnline              bool       `json:"is_online" gorm:"default:false"`
	LastSeen              *time.Time `json:"last_seen"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Avatar   string     `json:"avatar"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// ToResponse converts User to safe UserResponse.
// Online state is hidden when the user turned visibility off.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline && u.ShowOnlineStatus,
		LastSeen: u.LastSeen,
	}
}

// UserDevice is a registered push target of a user
type UserDevice struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	FCMToken     string    `json:"fcm_token" gorm:"not null;uniqueIndex"`
	DeviceType   string    `json:"device_type" gorm:"size:20;default:'unknown'"` // android, ios, web
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}

package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/presence"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

// PresenceStore persists the user-facing side of presence
type PresenceStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateOnlineStatus(ctx context.Context, id uuid.UUID, isOnline bool) error
	UpdateOnlineVisibility(ctx context.Context, id uuid.UUID, visible bool) error
}

// PresenceService keeps the registry, the user rows and connected clients in sync
type PresenceService struct {
	registry presence.Registry
	users    PresenceStore
	chat     *ChatService
	events   Broadcaster
}

func NewPresenceService(registry presence.Registry, users PresenceStore, chat *ChatService, events Broadcaster) *PresenceService {
	return &PresenceService{
		registry: registry,
		users:    users,
		chat:     chat,
		events:   events,
	}
}

// Connect registers a live connection and flushes pending deliveries to the user
func (s *PresenceService) Connect(ctx context.Context, userID uuid.UUID, connID string) {
	if user, err := s.users.FindByID(ctx, userID); err == nil {
		s.registry.SetVisibility(userID, user.ShowOnlineStatus)
	} else {
		log.Printf("⚠️ Could not load visibility of %s: %v", userID, err)
	}

	if s.registry.Connect(userID, connID) {
		if err := s.users.UpdateOnlineStatus(ctx, userID, true); err != nil {
			log.Printf("⚠️ Failed to mark %s online: %v", userID, err)
		}
	}

	if err := s.chat.HandleConnect(ctx, userID); err != nil {
		log.Printf("⚠️ Pending delivery for %s failed: %v", userID, err)
	}

	s.publish()
}

// Disconnect drops a connection. The user goes offline with the last one.
func (s *PresenceService) Disconnect(ctx context.Context, userID uuid.UUID, connID string) {
	if s.registry.Disconnect(userID, connID) {
		if err := s.users.UpdateOnlineStatus(ctx, userID, false); err != nil {
			log.Printf("⚠️ Failed to mark %s offline: %v", userID, err)
		}
	}
	s.publish()
}

// SetVisibility toggles whether the user appears online to others
func (s *PresenceService) SetVisibility(ctx context.Context, userID uuid.UUID, visible bool) error {
	if err := s.users.UpdateOnlineVisibility(ctx, userID, visible); err != nil {
		return appErrors.Internal("failed to update visibility", err)
	}
	s.registry.SetVisibility(userID, visible)
	s.publish()
	return nil
}

// OnlineUsers returns users that are online and visible
func (s *PresenceService) OnlineUsers() []uuid.UUID {
	return s.registry.OnlineUsers()
}

func (s *PresenceService) publish() {
	s.events.Broadcast(&model.WSEvent{
		Type:    model.WSEventOnlineUsers,
		Payload: model.OnlineUsersEvent{UserIDs: s.registry.OnlineUsers()},
	})
}

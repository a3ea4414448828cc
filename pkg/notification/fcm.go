package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"google.golang.org/api/option"
)

// Recipients resolves who a push goes to and prunes dead tokens
type Recipients interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserDevices(ctx context.Context, userID uuid.UUID) ([]model.UserDevice, error)
	RemoveDevice(ctx context.Context, token string) error
}

// NotificationService handles FCM notifications
type NotificationService struct {
	client *messaging.Client
	users  Recipients
}

// NewNotificationService creates a new FCM notification service.
// It returns nil when push is not configured; a nil service is a no-op.
func NewNotificationService(ctx context.Context, credentialsFile string, users Recipients) *NotificationService {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		// Don't block server startup
		log.Printf("⚠️ Failed to initialize Firebase app: %v (push notifications disabled)", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil
	}

	log.Println("✅ Firebase FCM initialized")
	return &NotificationService{client: client, users: users}
}

// NotifyMessage pushes msg to every device of receiverID
func (s *NotificationService) NotifyMessage(ctx context.Context, receiverID uuid.UUID, msg *model.Message) error {
	if s == nil || s.client == nil {
		return nil
	}

	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil {
		return err
	}
	if !receiver.IsNotificationEnabled {
		return nil
	}

	devices, err := s.users.GetUserDevices(ctx, receiverID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	senderName := "GoTalk"
	if sender, err := s.users.FindByID(ctx, msg.SenderID); err == nil {
		senderName = sender.Name
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	br, err := s.client.SendEachForMulticast(ctx, buildMessage(tokens, senderName, msg))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			if messaging.IsUnregistered(resp.Error) {
				if err := s.users.RemoveDevice(ctx, tokens[idx]); err != nil {
					log.Printf("⚠️ Failed to remove stale FCM token: %v", err)
				}
				continue
			}
			log.Printf("⚠️ FCM failure for token %s: %v", tokens[idx], resp.Error)
		}
	}

	return nil
}

func buildMessage(tokens []string, senderName string, msg *model.Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  preview(msg),
		},
		Data: map[string]string{
			"type":            "new-message",
			"conversation_id": msg.ConversationID.String(),
			"message_id":      msg.ID.String(),
			"sender_name":     senderName,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ClickAction: "FLUTTER_NOTIFICATION_CLICK",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

func preview(msg *model.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	switch msg.Type {
	case model.MessageTypeImage:
		return "Sent a photo"
	case model.MessageTypeVideo:
		return "Sent a video"
	case model.MessageTypeAudio:
		return "Sent a voice message"
	default:
		return "Sent an attachment"
	}
}

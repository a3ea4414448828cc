package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNilServiceIsNoop(t *testing.T) {
	var s *NotificationService
	err := s.NotifyMessage(context.Background(), uuid.New(), &model.Message{Content: "hi"})
	assert.NoError(t, err)
}

func TestNewNotificationService_Disabled(t *testing.T) {
	assert.Nil(t, NewNotificationService(context.Background(), "", nil))
}

func TestBuildMessage(t *testing.T) {
	msg := &model.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		Type:           model.MessageTypeImage,
	}

	m := buildMessage([]string{"t1", "t2"}, "Alice", msg)
	assert.Equal(t, []string{"t1", "t2"}, m.Tokens)
	assert.Equal(t, "Alice", m.Notification.Title)
	assert.Equal(t, "Sent a photo", m.Notification.Body)
	assert.Equal(t, msg.ConversationID.String(), m.Data["conversation_id"])
	assert.Equal(t, "new-message", m.Data["type"])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello", preview(&model.Message{Content: "hello", Type: model.MessageTypeText}))
	assert.Equal(t, "Sent a voice message", preview(&model.Message{Type: model.MessageTypeAudio}))
	assert.Equal(t, "Sent an attachment", preview(&model.Message{Type: model.MessageTypeFile}))
}

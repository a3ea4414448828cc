package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationSnapshot(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conv := &Conversation{
		ID:   uuid.New(),
		Type: ConversationTypeDirect,
		Participants: []Participant{
			{UserID: a, UnreadCount: 0, HasSeen: true, LastMessageDay: "2024-01-01"},
			{UserID: b, UnreadCount: 2},
		},
		Request: DirectRequest{Status: RequestStatusPending, RequesterID: &a, ResponderID: &b},
	}

	snap := conv.Snapshot()
	assert.Equal(t, map[uuid.UUID]int{a: 0, b: 2}, snap.UnreadCounts)
	assert.Equal(t, []uuid.UUID{a}, snap.SeenBy)
	assert.Equal(t, map[uuid.UUID]string{a: "2024-01-01"}, snap.LastMessageDayBy)
	require.NotNil(t, snap.DirectRequest)
	assert.Equal(t, RequestStatusPending, snap.DirectRequest.Status)
	assert.Nil(t, snap.LastMessage)

	conv.Type = ConversationTypeGroup
	assert.Nil(t, conv.Snapshot().DirectRequest)
}

func TestConversationClone(t *testing.T) {
	conv := &Conversation{Participants: []Participant{{UserID: uuid.New()}}}
	cp := conv.Clone()
	cp.Participants[0].UnreadCount = 5
	assert.Zero(t, conv.Participants[0].UnreadCount)
}

func TestOtherParticipant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conv := &Conversation{Type: ConversationTypeDirect, Participants: []Participant{{UserID: a}, {UserID: b}}}

	other, ok := conv.OtherParticipant(a)
	assert.True(t, ok)
	assert.Equal(t, b, other)

	conv.Type = ConversationTypeGroup
	_, ok = conv.OtherParticipant(a)
	assert.False(t, ok)
}

func TestMessagePreview(t *testing.T) {
	assert.Equal(t, "Sent an attachment", (&Message{Attachments: []MessageAttachment{{URL: "x"}}}).Preview())

	long := strings.Repeat("é", 600)
	assert.Len(t, []rune((&Message{Content: long}).Preview()), 500)

	m := &Message{ID: uuid.New(), SenderID: uuid.New(), Content: "hi", CreatedAt: time.Now()}
	snap := m.Snapshot()
	assert.Equal(t, m.ID, *snap.ID)
	assert.Equal(t, "hi", snap.Content)
}

func TestAttachmentType_MessageType(t *testing.T) {
	assert.Equal(t, MessageTypeImage, AttachmentTypeImage.MessageType())
	assert.Equal(t, MessageTypeVideo, AttachmentTypeVideo.MessageType())
	assert.Equal(t, MessageTypeAudio, AttachmentTypeAudio.MessageType())
	assert.Equal(t, MessageTypeFile, AttachmentType("sticker").MessageType())
}

func TestOrderedPair(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lo1, hi1 := OrderedPair(a, b)
	lo2, hi2 := OrderedPair(b, a)
	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)
	assert.True(t, lo1.String() <= hi1.String())
}

func TestUserToResponse_HidesOnlineWhenInvisible(t *testing.T) {
	u := &User{ID: uuid.New(), IsOnline: true, ShowOnlineStatus: false}
	assert.False(t, u.ToResponse().IsOnline)

	u.ShowOnlineStatus = true
	assert.True(t, u.ToResponse().IsOnline)
}

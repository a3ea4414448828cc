package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirect(t *testing.T, s *Store, a, b uuid.UUID) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		Type:         model.ConversationTypeDirect,
		Participants: []model.Participant{{UserID: a}, {UserID: b}},
	}
	require.NoError(t, s.Conversations().Create(context.Background(), conv))
	return conv
}

func TestSave_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv := newDirect(t, s, uuid.New(), uuid.New())

	first, err := s.Conversations().FindByID(ctx, conv.ID)
	require.NoError(t, err)
	second, err := s.Conversations().FindByID(ctx, conv.ID)
	require.NoError(t, err)

	first.Streak.Count = 1
	require.NoError(t, s.Conversations().Save(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Streak.Count = 9
	assert.ErrorIs(t, s.Conversations().Save(ctx, second), repository.ErrConflict)

	stored, err := s.Conversations().FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Streak.Count)
}

func TestTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv := newDirect(t, s, uuid.New(), uuid.New())

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Store) error {
		msg := &model.Message{ConversationID: conv.ID, SenderID: conv.Participants[0].UserID}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.MessageCount(conv.ID))
}

func TestDelete_CascadesMessages(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	conv := newDirect(t, s, a, b)
	require.NoError(t, s.Messages().Create(ctx, &model.Message{ConversationID: conv.ID, SenderID: a}))

	require.NoError(t, s.Conversations().Delete(ctx, conv.ID))
	assert.Equal(t, 0, s.MessageCount(conv.ID))

	_, err := s.Conversations().FindDirect(ctx, a, b)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Conversations().Delete(ctx, conv.ID), repository.ErrNotFound)
}

func TestListByConversation_Cursor(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	conv := newDirect(t, s, a, b)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		msg := &model.Message{ConversationID: conv.ID, SenderID: a}
		require.NoError(t, s.Messages().Create(ctx, msg))
		ids = append(ids, msg.ID)
	}

	page, err := s.Messages().ListByConversation(ctx, conv.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	next, err := s.Messages().ListByConversation(ctx, conv.ID, &page[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[0], next[2].ID)
}

func TestBlock_RemovesFriendship(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	s.AddFriendship(a, b)

	require.NoError(t, s.Block(ctx, a, b))

	friends, _ := s.AreFriends(ctx, b, a)
	assert.False(t, friends)
	blocked, _ := s.IsBlocked(ctx, b, a)
	assert.True(t, blocked)

	require.NoError(t, s.Unblock(ctx, a, b))
	blocked, _ = s.IsBlocked(ctx, a, b)
	assert.False(t, blocked)
}

func TestRestrict_EitherDirection(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	s.AddFriendship(a, b)

	require.NoError(t, s.Restrict(ctx, a, b))
	restricted, _ := s.IsRestricted(ctx, b, a)
	assert.True(t, restricted)
	friends, _ := s.AreFriends(ctx, a, b)
	assert.True(t, friends)
}

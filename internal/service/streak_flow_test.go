package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStreak opens a friends conversation and overwrites its streak state
func seedStreak(t *testing.T, f *fixture, st model.Streak, lastDay string) uuid.UUID {
	t.Helper()
	f.store.AddFriendship(f.alice, f.bob)
	snap, _, err := f.chat.GetOrCreateDirect(f.ctx, f.alice, f.bob)
	require.NoError(t, err)

	conv, err := f.store.Conversations().FindByID(f.ctx, snap.ID)
	require.NoError(t, err)
	conv.Streak = st
	for i := range conv.Participants {
		conv.Participants[i].LastMessageDay = lastDay
	}
	require.NoError(t, f.store.Conversations().Save(f.ctx, conv))
	return conv.ID
}

func (f *fixture) exchange(t *testing.T, day string) model.ConversationSnapshot {
	t.Helper()
	f.clock.set(day)
	f.send(t, f.alice, f.bob, "morning")
	return f.send(t, f.bob, f.alice, "morning!").Conversation
}

func TestStreak_DailyExchangeCountsUp(t *testing.T) {
	f := newFixture(t)
	f.store.AddFriendship(f.alice, f.bob)

	assert.Equal(t, 1, f.exchange(t, "2024-01-01").Streak.Count)
	assert.Equal(t, 2, f.exchange(t, "2024-01-02").Streak.Count)
	assert.Equal(t, 0, f.events.count(model.WSEventStreakMilestone))

	snap := f.exchange(t, "2024-01-03")
	assert.Equal(t, 3, snap.Streak.Count)
	assert.Equal(t, "2024-01-03", snap.Streak.LastCountedDay)

	milestone := f.events.last(model.WSEventStreakMilestone)
	require.NotNil(t, milestone)
	assert.Equal(t, 3, milestone.event.Payload.(model.StreakMilestoneEvent).Count)
}

func TestStreak_OneSidedDayDoesNotCount(t *testing.T) {
	f := newFixture(t)
	seedStreak(t, f, model.Streak{Count: 5, LastCountedDay: "2024-01-01"}, "2024-01-01")

	f.clock.set("2024-01-02")
	snap := f.send(t, f.alice, f.bob, "hello?").Conversation
	assert.Equal(t, 5, snap.Streak.Count)
	assert.Equal(t, "2024-01-02", snap.LastMessageDayBy[f.alice])

	updated := f.events.last(model.WSEventStreakUpdated)
	require.NotNil(t, updated)
	ev := updated.event.Payload.(model.StreakUpdatedEvent)
	assert.True(t, ev.AtRisk)
	require.NotNil(t, ev.Deadline)
}

func TestStreak_NextDayIncrements(t *testing.T) {
	f := newFixture(t)
	seedStreak(t, f, model.Streak{Count: 5, LastCountedDay: "2024-01-01"}, "2024-01-01")

	snap := f.exchange(t, "2024-01-02")
	assert.Equal(t, 6, snap.Streak.Count)
	assert.Equal(t, "2024-01-02", snap.Streak.LastCountedDay)
	assert.Equal(t, 0, snap.Streak.MissLevel)
}

func TestStreak_Recovery(t *testing.T) {
	tests := []struct {
		name  string
		day   string
		count int
	}{
		{"one missed day is free", "2024-01-03", 5},
		{"two missed days cost one", "2024-01-04", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedStreak(t, f, model.Streak{Count: 5, LastCountedDay: "2024-01-01"}, "2024-01-01")

			snap := f.exchange(t, tt.day)
			assert.Equal(t, tt.count, snap.Streak.Count)
			assert.Equal(t, 0, snap.Streak.MissLevel)
			assert.Equal(t, tt.day, snap.Streak.LastCountedDay)
		})
	}
}

func TestStreak_LostExactlyOnce(t *testing.T) {
	f := newFixture(t)
	seedStreak(t, f, model.Streak{Count: 5, LastCountedDay: "2024-01-01"}, "2024-01-01")

	f.clock.set("2024-01-04")
	snap := f.send(t, f.alice, f.bob, "sorry, busy week").Conversation
	assert.Equal(t, 2, snap.Streak.MissLevel)
	assert.Equal(t, 5, snap.Streak.Count)

	ev := f.events.last(model.WSEventStreakUpdated).event.Payload.(model.StreakUpdatedEvent)
	assert.Equal(t, "minus_one", ev.RecoveryMode)

	f.clock.set("2024-01-06")
	snap = f.send(t, f.alice, f.bob, "hello?").Conversation
	assert.Equal(t, 0, snap.Streak.Count)
	assert.Equal(t, 0, snap.Streak.MissLevel)
	assert.Empty(t, snap.Streak.LastCountedDay)

	f.send(t, f.alice, f.bob, "anyone?")
	assert.Equal(t, 1, f.events.count(model.WSEventStreakLost))
}

func TestStreak_CorruptStateNeverBlocksDelivery(t *testing.T) {
	f := newFixture(t)
	convID := seedStreak(t, f, model.Streak{Count: 5, LastCountedDay: "not-a-day"}, "")

	f.clock.set("2024-01-02")
	resp := f.send(t, f.alice, f.bob, "still works")
	assert.Equal(t, 5, resp.Conversation.Streak.Count)
	assert.Equal(t, "not-a-day", resp.Conversation.Streak.LastCountedDay)
	assert.Equal(t, "2024-01-02", resp.Conversation.LastMessageDayBy[f.alice])
	assert.Equal(t, 0, f.events.count(model.WSEventStreakUpdated))
	assert.Equal(t, 1, f.store.MessageCount(convID))
}

func TestStreak_GroupNeedsEveryone(t *testing.T) {
	f := newFixture(t)
	group, err := f.chat.CreateGroup(f.ctx, f.alice, model.CreateGroupRequest{Name: "trio", MemberIDs: []uuid.UUID{f.bob, f.carol}})
	require.NoError(t, err)

	f.clock.set("2024-01-01")
	for _, member := range []uuid.UUID{f.alice, f.bob} {
		resp, err := f.chat.SendMessage(f.ctx, member, group.ID, text("hey"))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Conversation.Streak.Count)
	}

	resp, err := f.chat.SendMessage(f.ctx, f.carol, group.ID, text("here"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Conversation.Streak.Count)

	ev := f.events.last(model.WSEventStreakUpdated).event.Payload.(model.StreakUpdatedEvent)
	assert.Nil(t, ev.Deadline)
}

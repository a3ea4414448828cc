package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/repository/memory"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a, b := uuid.New(), uuid.New()
	store.AddUser(a, b)
	store.AddFriendship(a, b)
	svc := NewRelationService(store, store)

	tests := []struct {
		name string
		call func() error
		err  error
	}{
		{"block self", func() error { return svc.Block(ctx, a, a) }, appErrors.ErrSelfTarget},
		{"block unknown", func() error { return svc.Block(ctx, a, uuid.New()) }, appErrors.ErrUserNotFound},
		{"restrict", func() error { return svc.Restrict(ctx, a, b) }, nil},
		{"unrestrict", func() error { return svc.Unrestrict(ctx, a, b) }, nil},
		{"block", func() error { return svc.Block(ctx, a, b) }, nil},
		{"block twice", func() error { return svc.Block(ctx, a, b) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
		})
	}

	blocked, _ := store.IsBlocked(ctx, b, a)
	assert.True(t, blocked)
	restricted, _ := store.IsRestricted(ctx, a, b)
	assert.False(t, restricted)
	friends, _ := store.AreFriends(ctx, a, b)
	assert.False(t, friends)
}

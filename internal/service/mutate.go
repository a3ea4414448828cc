package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

// DefaultRetryBudget is how many times a conflicting update is retried
const DefaultRetryBudget = 3

type mutation func(tx repository.Store, conv *model.Conversation, out *outbox) error

// mutate applies fn to a fresh read of the conversation. Updates to one
// conversation are serialized by an in-process lock, run inside a
// transaction and retried when the stored version moved underneath them.
// Events collected in the outbox are sent once the transaction commits.
func (s *ChatService) mutate(ctx context.Context, convID uuid.UUID, fn mutation) error {
	unlock := s.locks.Lock(conversationKey(convID))
	defer unlock()

	return s.transact(ctx, func(tx repository.Store, out *outbox) error {
		conv, err := tx.Conversations().FindByID(ctx, convID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return appErrors.ErrConversationNotFound
			}
			return err
		}
		return fn(tx, conv, out)
	})
}

func (s *ChatService) transact(ctx context.Context, fn func(tx repository.Store, out *outbox) error) error {
	out := &outbox{}
	for attempt := 0; ; attempt++ {
		out.reset()
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			return fn(tx, out)
		})
		if err == nil {
			s.flush(out)
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return asAppError(err)
		}
		if attempt >= s.retryBudget {
			log.Printf("⚠️ Giving up after %d conflicting updates", attempt+1)
			return appErrors.ErrConversationBusy
		}
	}
}

// asAppError leaves domain errors untouched and hides storage failures
// behind an internal error.
func asAppError(err error) error {
	if _, ok := appErrors.As(err); ok {
		return err
	}
	return appErrors.Internal("storage failure", err)
}

func conversationKey(id uuid.UUID) string {
	return "conv:" + id.String()
}

func pairKey(a, b uuid.UUID) string {
	lo, hi := model.OrderedPair(a, b)
	return "pair:" + lo.String() + ":" + hi.String()
}

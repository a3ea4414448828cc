package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

// RelationService manages block and restriction edges. Existing
// conversations are kept; only later sends are denied.
type RelationService struct {
	relations repository.RelationStore
	users     UserDirectory
}

func NewRelationService(relations repository.RelationStore, users UserDirectory) *RelationService {
	return &RelationService{relations: relations, users: users}
}

func (s *RelationService) check(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return appErrors.ErrSelfTarget
	}
	ok, err := s.users.Exists(ctx, []uuid.UUID{targetID})
	if err != nil {
		return appErrors.Internal("failed to look up user", err)
	}
	if !ok {
		return appErrors.ErrUserNotFound
	}
	return nil
}

// Block blocks targetID and removes any friendship or pending friend request between the pair
func (s *RelationService) Block(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.check(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := s.relations.Block(ctx, actorID, targetID); err != nil {
		return appErrors.Internal("failed to block user", err)
	}
	log.Printf("🚫 %s blocked %s", actorID, targetID)
	return nil
}

func (s *RelationService) Unblock(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.check(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := s.relations.Unblock(ctx, actorID, targetID); err != nil {
		return appErrors.Internal("failed to unblock user", err)
	}
	return nil
}

func (s *RelationService) Restrict(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.check(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := s.relations.Restrict(ctx, actorID, targetID); err != nil {
		return appErrors.Internal("failed to restrict user", err)
	}
	return nil
}

func (s *RelationService) Unrestrict(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.check(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := s.relations.Unrestrict(ctx, actorID, targetID); err != nil {
		return appErrors.Internal("failed to unrestrict user", err)
	}
	return nil
}

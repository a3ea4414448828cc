package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository reads the friend graph and owns block/restrict edges
type RelationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// AreFriends checks for an accepted friendship between two users
func (r *RelationRepository) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	lo, hi := model.OrderedPair(a, b)
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("user_a_id = ? AND user_b_id = ?", lo, hi).
		Count(&count).Error
	return count > 0, err
}

// AddFriendship records a friendship, used by the seeder
func (r *RelationRepository) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	lo, hi := model.OrderedPair(a, b)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Friendship{UserAID: lo, UserBID: hi, CreatedAt: time.Now()}).Error
}

func (r *RelationRepository) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func (r *RelationRepository) IsRestricted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Restriction{}).
		Where("(restrictor_id = ? AND restricted_id = ?) OR (restrictor_id = ? AND restricted_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// Block adds a block edge and tears down the friendship between the pair
func (r *RelationRepository) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: time.Now()}).Error
		if err != nil {
			return err
		}

		lo, hi := model.OrderedPair(blockerID, blockedID)
		if err := tx.Where("user_a_id = ? AND user_b_id = ?", lo, hi).Delete(&model.Friendship{}).Error; err != nil {
			return err
		}

		return tx.Where("status = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			model.FriendRequestPending, blockerID, blockedID, blockedID, blockerID).
			Delete(&model.FriendRequest{}).Error
	})
}

func (r *RelationRepository) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{}).Error
}

func (r *RelationRepository) Restrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Restriction{RestrictorID: restrictorID, RestrictedID: restrictedID, CreatedAt: time.Now()}).Error
}

func (r *RelationRepository) Unrestrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("restrictor_id = ? AND restricted_id = ?", restrictorID, restrictedID).
		Delete(&model.Restriction{}).Error
}

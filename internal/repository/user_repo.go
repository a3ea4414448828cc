package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"gorm.io/gorm"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Exists reports whether every given user ID is a known account
func (r *UserRepository) Exists(ctx context.Context, ids []uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id IN ?", ids).Count(&count).Error
	return count == int64(len(ids)), err
}

// UpdateOnlineStatus sets a user's online status and last seen time
func (r *UserRepository) UpdateOnlineStatus(ctx context.Context, id uuid.UUID, isOnline bool) error {
	updates := map[string]interface{}{
		"is_online": isOnline,
	}
	if !isOnline {
		updates["last_seen"] = gorm.Expr("NOW()")
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateOnlineVisibility persists the user's "show online status" setting
func (r *UserRepository) UpdateOnlineVisibility(ctx context.Context, id uuid.UUID, visible bool) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("show_online_status", visible).Error
}

// HiddenUserIDs lists users who turned their online status off
func (r *UserRepository) HiddenUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("show_online_status = ?", false).
		Pluck("id", &ids).Error
	return ids, err
}

// ResetOnlineStatus marks everyone offline, used at startup
func (r *UserRepository) ResetOnlineStatus(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_online = ?", true).
		Update("is_online", false).Error
}

// GetUserDevices gets all devices for a user
func (r *UserRepository) GetUserDevices(ctx context.Context, userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}

// RemoveDevice drops a push token the provider reported as invalid
func (r *UserRepository) RemoveDevice(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("fcm_token = ?", token).Delete(&model.UserDevice{}).Error
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Functions:
//
//   - CreateUser(ctx, db, accountID, name) -> *domain.User, error
//     Inserts a new user row with UUID primary key and UTC timestamp.
//
//   - GetUser(ctx, db, id) -> *domain.User, error
//     Fetches a user by primary key, or ErrNotFound.
//
//   - GetUserByAccountID(ctx, db, accountID) -> *domain.User, error
//     Fetches a user by the external account id, or ErrNotFound.
//
//   - UpdateUserHandle(ctx, db, id, handle) -> error
//     Registers or corrects the public handle used as the matching key.
//
//   - UpdateUserSettings(ctx, db, id, push, inApp) -> error
//     Partially updates notification preference flags.
//
//   - HardDeleteUser(ctx, db, id) -> error
//     Physically removes the user row (account disconnect cascade).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

// CreateUser inserts a new user identified by the opaque external accountID.
// Notification preferences default to enabled.
func CreateUser(ctx context.Context, db *gorm.DB, accountID, name string) (*domain.User, error) {
	u := &domain.User{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Name:         name,
		PushEnabled:  true,
		InAppEnabled: true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by primary key, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByAccountID fetches a user by external account id, or ErrNotFound.
func GetUserByAccountID(ctx context.Context, db *gorm.DB, accountID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("account_id = ?", accountID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserName fills in the display name when it was not captured at
// signup. Existing names are left untouched by the service layer.
func UpdateUserName(ctx context.Context, db *gorm.DB, id, name string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserHandle registers or corrects the user's public handle. Handles
// are not unique across users; the matching layer tolerates collisions.
func UpdateUserHandle(ctx context.Context, db *gorm.DB, id, handle string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"handle": handle, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserSettings applies a partial update of notification preference
// flags. Nil pointers leave the corresponding flag unchanged.
func UpdateUserSettings(ctx context.Context, db *gorm.DB, id string, push, inApp *bool) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if push != nil {
		updates["push_enabled"] = *push
	}
	if inApp != nil {
		updates["in_app_enabled"] = *inApp
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDeleteUser physically removes a user row. The service layer wraps this
// in a transaction together with the alarm and match cascade; SQLite foreign
// keys also cascade when PRAGMA foreign_keys is on, but the explicit cascade
// keeps behavior identical across drivers.
func HardDeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Unscoped().
		Where("id = ?", id).
		Delete(&domain.User{}).Error
}

// HardDeleteAlarmsForUser removes all alarm rows (withdrawn included) owned
// by userID. Part of the account-disconnect cascade.
func HardDeleteAlarmsForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&domain.Alarm{}).Error
}

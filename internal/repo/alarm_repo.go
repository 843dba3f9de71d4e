// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Alarm model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Soft-delete semantics: GORM's DeletedAt automatically filters withdrawn
// alarms from every query in this file except the ones that explicitly use
// Unscoped (restore path). The unique index on (user_id, target_handle)
// covers withdrawn rows too, so re-declaring an existing pair must go through
// RestoreAlarm rather than CreateAlarm.
//
// Error semantics:
//   - When an alarm is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Conditional updates that match no rows return ErrNotFound so callers
//     can treat lost races as ordinary not-found conditions.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateAlarm inserts a new waiting alarm owned by userID. The alarm ID is a
// randomly generated UUID and CreatedAt is set to UTC.
//
// The (user_id, target_handle) unique index makes a duplicate insert fail
// even when a withdrawn row exists for the pair; callers should look up the
// pair with GetAlarmAnyState first and restore instead.
func CreateAlarm(ctx context.Context, db *gorm.DB, userID, fromHandle, targetHandle string) (*domain.Alarm, error) {
	a := &domain.Alarm{
		ID:           uuid.NewString(),
		UserID:       userID,
		FromHandle:   fromHandle,
		TargetHandle: targetHandle,
		Status:       domain.AlarmStatusWaiting,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetActiveAlarm fetches an alarm by id, excluding withdrawn rows. Returns
// ErrNotFound when the alarm does not exist or has been withdrawn.
func GetActiveAlarm(ctx context.Context, db *gorm.DB, id string) (*domain.Alarm, error) {
	var a domain.Alarm
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAlarmAnyState fetches the alarm for (userID, targetHandle) regardless of
// withdrawal state. Used by the declare path to decide between conflict,
// restore, and fresh insert. Returns ErrNotFound when no row exists at all.
func GetAlarmAnyState(ctx context.Context, db *gorm.DB, userID, targetHandle string) (*domain.Alarm, error) {
	var a domain.Alarm
	err := db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND target_handle = ?", userID, targetHandle).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActiveAlarms returns all active alarms belonging to userID, ordered by
// creation time descending (most recent first). Withdrawn alarms are
// excluded. It returns an empty slice if the user has none.
func ListActiveAlarms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Alarm, error) {
	var out []domain.Alarm
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountActiveAlarms returns the number of active alarms owned by userID.
func CountActiveAlarms(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Alarm{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListActiveAlarmsPage returns a page of active alarms for userID, ordered by
// creation time descending. Use CountActiveAlarms to obtain the total for
// pagination metadata.
func ListActiveAlarmsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Alarm, error) {
	var out []domain.Alarm
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RestoreAlarm reactivates a withdrawn alarm in place: the deletion marker is
// cleared, the declarer's handle snapshot is refreshed, and the status resets
// to waiting. The update is conditional on the row actually being withdrawn
// so that two concurrent re-declarations cannot both "restore"; the loser
// gets ErrNotFound and is surfaced as a duplicate by the service.
func RestoreAlarm(ctx context.Context, db *gorm.DB, id, fromHandle string) error {
	res := db.WithContext(ctx).Unscoped().
		Model(&domain.Alarm{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{
			"deleted_at":  nil,
			"from_handle": fromHandle,
			"status":      domain.AlarmStatusWaiting,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteAlarm withdraws an active alarm by id. The delete is conditional
// on the row still being active, which serializes concurrent withdrawals of
// the same alarm: exactly one caller succeeds, the rest get ErrNotFound.
func SoftDeleteAlarm(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Alarm{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindReverseAlarm looks up the active alarm that mirrors the given handle
// pair: an alarm whose declarer handle equals targetHandle and whose target
// equals fromHandle. This is the match-detection lookup; it is keyed on the
// declared handle strings, not on resolved user identity, and sees only
// active rows. Returns ErrNotFound when no reverse declaration exists.
//
// When several users share a handle the oldest active declaration wins; the
// ordering makes the choice deterministic.
func FindReverseAlarm(ctx context.Context, db *gorm.DB, fromHandle, targetHandle string) (*domain.Alarm, error) {
	var a domain.Alarm
	err := db.WithContext(ctx).
		Where("from_handle = ? AND target_handle = ?", targetHandle, fromHandle).
		Order("created_at asc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAlarmStatus sets the status of an active alarm by id. Returns
// ErrNotFound when the alarm is missing or withdrawn.
func UpdateAlarmStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Alarm{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Match model.
//
// Matches are stored with the pair in canonical (lexicographic) order via
// domain.CanonicalPair, and every function here applies the same ordering, so
// a pair of users can never appear twice under swapped columns. The unique
// index on (user1_id, user2_id) is what makes concurrent mutual declarations
// race-safe: the losing insert fails with a duplicate-key error that the
// service layer treats as "already matched".
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

// CreateMatch inserts the Match row for the unordered user pair {userA,
// userB}. The pair is canonicalized before insert. A duplicate-key error is
// returned as-is; callers decide whether that is a failure or an idempotent
// success.
func CreateMatch(ctx context.Context, db *gorm.DB, userA, userB string) (*domain.Match, error) {
	u1, u2 := domain.CanonicalPair(userA, userB)
	m := &domain.Match{
		ID:        uuid.NewString(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMatchByPair fetches the Match row for the unordered user pair, if one
// exists. Returns ErrNotFound when the pair is not matched.
func GetMatchByPair(ctx context.Context, db *gorm.DB, userA, userB string) (*domain.Match, error) {
	u1, u2 := domain.CanonicalPair(userA, userB)
	var m domain.Match
	err := db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMatchByPair removes the Match row for the unordered user pair. The
// delete is a hard delete: a destroyed match leaves no trace, and the pair
// can match again later with a fresh row. Deleting a pair that has no match
// is a no-op, not an error, so concurrent withdrawals stay idempotent.
func DeleteMatchByPair(ctx context.Context, db *gorm.DB, userA, userB string) error {
	u1, u2 := domain.CanonicalPair(userA, userB)
	return db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Delete(&domain.Match{}).Error
}

// ListMatchesForUser returns all matches that include userID, most recent
// first.
func ListMatchesForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Match, error) {
	var out []domain.Match
	err := db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeleteMatchesForUser removes every match involving userID. Used by the
// account-disconnect cascade.
func DeleteMatchesForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Delete(&domain.Match{}).Error
}

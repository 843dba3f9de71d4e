// Package services – UserService
//
// This file implements the thin user lifecycle around the matching engine:
// login-time upsert by external account id, handle registration (the matching
// key), notification preference updates, and the account-disconnect cascade
// that removes the user together with all alarms and matches. Session and
// token management live outside this service; callers are trusted to supply
// an authenticated account id.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
	"github.com/haeun-dev/heartlink-backend/internal/repo"
)

// UserService provides user-level operations. It is context-aware and safe
// for concurrent use.
type UserService struct {
	// DB is the GORM handle used for all user operations.
	DB *gorm.DB
}

// Login finds or creates the user for accountID. A missing optional name is
// filled in from the login payload on subsequent logins; an existing name is
// never overwritten.
func (s *UserService) Login(ctx context.Context, accountID, name string) (*domain.User, bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, false, ErrUserNotFound
	}
	name = strings.TrimSpace(name)

	u, err := repo.GetUserByAccountID(ctx, s.DB, accountID)
	switch {
	case err == nil:
		if name != "" && u.Name == "" {
			if err := repo.UpdateUserName(ctx, s.DB, u.ID, name); err != nil {
				return nil, false, err
			}
			u.Name = name
		}
		return u, false, nil
	case errors.Is(err, repo.ErrNotFound):
		created, err := repo.CreateUser(ctx, s.DB, accountID, name)
		if err != nil {
			if isDuplicate(err) {
				// Concurrent first login for the same account; reuse the
				// winner's row.
				existing, gerr := repo.GetUserByAccountID(ctx, s.DB, accountID)
				if gerr != nil {
					return nil, false, gerr
				}
				return existing, false, nil
			}
			return nil, false, err
		}
		return created, true, nil
	default:
		return nil, false, err
	}
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateHandle registers or corrects the user's public handle. The handle is
// trimmed; an empty result is rejected. Handles are not unique across users.
func (s *UserService) UpdateHandle(ctx context.Context, id, handle string) (*domain.User, error) {
	handle = normalizeHandle(handle)
	if handle == "" {
		return nil, ErrHandleRequired
	}
	if err := repo.UpdateUserHandle(ctx, s.DB, id, handle); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.GetUser(ctx, s.DB, id)
}

// UpdateSettings applies a partial update of the notification preference
// flags. At least one flag must be provided.
func (s *UserService) UpdateSettings(ctx context.Context, id string, push, inApp *bool) (*domain.User, error) {
	if push == nil && inApp == nil {
		return nil, ErrNoSettingsChange
	}
	if err := repo.UpdateUserSettings(ctx, s.DB, id, push, inApp); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.GetUser(ctx, s.DB, id)
}

// Disconnect removes the account identified by accountID together with all
// of its alarms and matches in one transaction. Counterpart alarms of any
// live matches revert to waiting, so a surviving alarm is matched only while
// its Match row exists. Disconnecting an unknown account is a success: the
// callback may be retried by the identity provider.
func (s *UserService) Disconnect(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrUserNotFound
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUserByAccountID(ctx, tx, accountID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil // already disconnected
			}
			return err
		}
		alarms, err := repo.ListActiveAlarms(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		for _, a := range alarms {
			if a.Status != domain.AlarmStatusMatched {
				continue
			}
			rev, err := repo.FindReverseAlarm(ctx, tx, a.FromHandle, a.TargetHandle)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					continue // counterpart withdrew concurrently
				}
				return err
			}
			if err := repo.UpdateAlarmStatus(ctx, tx, rev.ID, domain.AlarmStatusWaiting); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}
		if err := repo.DeleteMatchesForUser(ctx, tx, u.ID); err != nil {
			return err
		}
		if err := repo.HardDeleteAlarmsForUser(ctx, tx, u.ID); err != nil {
			return err
		}
		return repo.HardDeleteUser(ctx, tx, u.ID)
	})
}

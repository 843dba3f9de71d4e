// Package services – AlarmService
//
// This file implements the alarm lifecycle and the matching engine around it:
// declaring interest in a target handle (with restore-in-place of withdrawn
// declarations), detecting the reverse declaration, establishing the Match
// and flipping both alarms to matched in one atomic unit, and the inverse
// propagation on withdrawal. Notification fan-out is triggered strictly after
// the transaction commits so a storage failure can never leave a notified-
// but-unmatched (or vice versa) state.
package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
	"github.com/haeun-dev/heartlink-backend/internal/notify"
	"github.com/haeun-dev/heartlink-backend/internal/repo"
)

// Announcer is the notification fan-out contract consumed by AlarmService.
// notify.Notifier is the production implementation; tests use fakes.
type Announcer interface {
	// AnnounceMatch notifies both sides of a newly created match (real-time
	// plus push).
	AnnounceMatch(ctx context.Context, a, b notify.Party)
	// NudgeMatch re-sends the real-time event only, for re-detections of an
	// existing match.
	NudgeMatch(ctx context.Context, a, b notify.Party)
	// AnnounceUnmatch notifies the remaining side after a withdrawal.
	AnnounceUnmatch(ctx context.Context, recipient notify.Party, byHandle string)
}

// MatchResult reports the outcome of match detection for a declaration.
type MatchResult struct {
	// Matched is true when the reverse declaration exists and a Match is in
	// effect for the pair (freshly created or pre-existing).
	Matched bool `json:"matched"`
	// AlreadyMatched is true when the Match row predated this declaration
	// (duplicate submission or lost creation race).
	AlreadyMatched bool `json:"-"`
	// Match is the authoritative Match row when Matched is true.
	Match *domain.Match `json:"match,omitempty"`
	// CounterpartID is the reverse declaration's owner.
	CounterpartID string `json:"-"`
	// counterpartAlarm carries the reverse alarm for post-commit fan-out.
	counterpartAlarm *domain.Alarm
}

// AlarmService implements declaration, matching, and withdrawal use-cases.
// All state transitions run inside a single transaction per operation; the
// uniqueness constraints on alarms and match pairs make duplicate and
// concurrent submissions safe at the storage level rather than by pre-check.
type AlarmService struct {
	// DB is the GORM handle used for all alarm operations.
	DB *gorm.DB
	// Announcer receives match/unmatch events after commit. Optional; nil
	// disables fan-out (used by some tests).
	Announcer Announcer
}

// handleFold performs Unicode case folding for handle comparison. Handles are
// stored as submitted (trimmed); equality checks fold first so "Alice" and
// "alice" are the same person as far as self-declaration is concerned.
var handleFold = cases.Fold()

// normalizeHandle trims surrounding whitespace from a submitted handle.
func normalizeHandle(h string) string { return strings.TrimSpace(h) }

// sameHandle reports whether two handles are equal after trimming and case
// folding.
func sameHandle(a, b string) bool {
	return handleFold.String(normalizeHandle(a)) == handleFold.String(normalizeHandle(b))
}

// Declare registers userID's interest in targetHandle, carrying fromHandle as
// the declarer's own handle snapshot, and immediately runs match detection.
//
// Semantics:
//   - fromHandle and targetHandle are required; equal handles (after trimming,
//     case-insensitive) are rejected with ErrSelfTarget before any storage
//     access.
//   - An active alarm for (userID, targetHandle) yields ErrAlarmExists.
//   - A withdrawn alarm for the pair is restored in place: same id, deletion
//     marker cleared, fromHandle refreshed, status reset to waiting.
//   - If the reverse declaration (target declared fromHandle) is active, a
//     Match is established for the pair and both alarms flip to matched in
//     the same transaction. An existing Match is returned idempotently.
//
// Concurrency:
//   - Two users declaring each other at the same instant may both observe
//     the reverse alarm; the unique index on the canonical pair lets exactly
//     one insert win. The loser returns Matched=true/AlreadyMatched=true and
//     does not re-fire the push.
//
// Fan-out: on a fresh match both sides are announced; on a re-detected match
// only the real-time nudge is re-sent. Both happen after commit.
func (s *AlarmService) Declare(ctx context.Context, userID, fromHandle, targetHandle string) (*domain.Alarm, *MatchResult, error) {
	fromHandle = normalizeHandle(fromHandle)
	targetHandle = normalizeHandle(targetHandle)
	if fromHandle == "" || targetHandle == "" {
		return nil, nil, ErrHandleRequired
	}
	if sameHandle(fromHandle, targetHandle) {
		return nil, nil, ErrSelfTarget
	}

	owner, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	var (
		alarm  *domain.Alarm
		result MatchResult
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Restore-or-create. The unique index on (user_id, target_handle)
		// spans withdrawn rows, so an insert can only succeed when no row —
		// active or withdrawn — exists for the pair.
		existing, err := repo.GetAlarmAnyState(ctx, tx, userID, targetHandle)
		switch {
		case err == nil && !existing.DeletedAt.Valid:
			return ErrAlarmExists
		case err == nil:
			if err := repo.RestoreAlarm(ctx, tx, existing.ID, fromHandle); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					// Restored concurrently by a duplicate request.
					return ErrAlarmExists
				}
				return err
			}
			restored, err := repo.GetActiveAlarm(ctx, tx, existing.ID)
			if err != nil {
				return err
			}
			alarm = restored
		case errors.Is(err, repo.ErrNotFound):
			created, err := repo.CreateAlarm(ctx, tx, userID, fromHandle, targetHandle)
			if err != nil {
				if isDuplicate(err) {
					return ErrAlarmExists
				}
				return err
			}
			alarm = created
		default:
			return err
		}

		return s.tryMatch(ctx, tx, alarm, &result)
	})
	if err != nil {
		return nil, nil, err
	}

	s.announceDeclare(ctx, owner, alarm, &result)
	return alarm, &result, nil
}

// tryMatch runs match detection for a newly active alarm inside tx.
//
// The lookup is keyed on the handle pair, not on resolved identity: the
// reverse alarm is any active declaration whose own handle equals the target
// and whose target equals the declarer's handle. The counterpart user id is
// read off that row. When several users claim the same handle, the oldest
// active declarer wins; this mirrors the accepted handle-collision tolerance.
func (s *AlarmService) tryMatch(ctx context.Context, tx *gorm.DB, alarm *domain.Alarm, out *MatchResult) error {
	rev, err := repo.FindReverseAlarm(ctx, tx, alarm.FromHandle, alarm.TargetHandle)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil // nobody declared us back yet
		}
		return err
	}

	out.CounterpartID = rev.UserID
	out.counterpartAlarm = rev

	if existing, err := repo.GetMatchByPair(ctx, tx, alarm.UserID, rev.UserID); err == nil {
		out.Matched = true
		out.AlreadyMatched = true
		out.Match = existing
		// Statuses may be stale when the pair re-matched through a restore;
		// flipping them again is harmless and keeps the derived field honest.
		return s.markMatched(ctx, tx, alarm.ID, rev.ID)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	m, err := repo.CreateMatch(ctx, tx, alarm.UserID, rev.UserID)
	if err != nil {
		if isDuplicate(err) {
			// Lost the concurrent-declare race; the winner's row stands.
			existing, gerr := repo.GetMatchByPair(ctx, tx, alarm.UserID, rev.UserID)
			if gerr != nil {
				return gerr
			}
			out.Matched = true
			out.AlreadyMatched = true
			out.Match = existing
			return s.markMatched(ctx, tx, alarm.ID, rev.ID)
		}
		return err
	}

	out.Matched = true
	out.Match = m
	return s.markMatched(ctx, tx, alarm.ID, rev.ID)
}

// markMatched flips exactly the two alarms that reference each other to
// matched. A reverse alarm withdrawn mid-transaction surfaces as ErrNotFound
// and aborts the whole unit, leaving prior state intact.
func (s *AlarmService) markMatched(ctx context.Context, tx *gorm.DB, alarmID, reverseID string) error {
	if err := repo.UpdateAlarmStatus(ctx, tx, alarmID, domain.AlarmStatusMatched); err != nil {
		return err
	}
	return repo.UpdateAlarmStatus(ctx, tx, reverseID, domain.AlarmStatusMatched)
}

// announceDeclare performs post-commit fan-out for Declare.
func (s *AlarmService) announceDeclare(ctx context.Context, owner *domain.User, alarm *domain.Alarm, res *MatchResult) {
	if s.Announcer == nil || !res.Matched || res.counterpartAlarm == nil {
		return
	}
	counterpart, err := repo.GetUser(ctx, s.DB, res.CounterpartID)
	if err != nil {
		// The match is committed; a vanished counterpart only skips fan-out.
		return
	}
	a := notify.Party{User: *owner, Handle: alarm.FromHandle}
	b := notify.Party{User: *counterpart, Handle: res.counterpartAlarm.FromHandle}
	if res.AlreadyMatched {
		s.Announcer.NudgeMatch(ctx, a, b)
		return
	}
	s.Announcer.AnnounceMatch(ctx, a, b)
}

// WithdrawResult reports the outcome of a withdrawal.
type WithdrawResult struct {
	// WasMatched is true when the withdrawn alarm was part of a match.
	WasMatched bool
	// CounterpartID is the reverse owner whose match was dissolved, when any.
	CounterpartID string
}

// Withdraw soft-deletes an active alarm. If the alarm was matched, the
// reverse declaration reverts to waiting and the Match row is removed in the
// same transaction; the reverse owner is then notified (real-time only) that
// the match was dissolved. A reverse declaration withdrawn concurrently makes
// the propagation a no-op rather than an error.
func (s *AlarmService) Withdraw(ctx context.Context, alarmID string) (*WithdrawResult, error) {
	var (
		res        WithdrawResult
		withdrawn  *domain.Alarm
		recipient  *domain.User
		recipientA *domain.Alarm
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetActiveAlarm(ctx, tx, alarmID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAlarmNotFound
			}
			return err
		}
		withdrawn = a

		if err := repo.SoftDeleteAlarm(ctx, tx, a.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAlarmNotFound // withdrawn concurrently
			}
			return err
		}

		if a.Status != domain.AlarmStatusMatched {
			return nil
		}
		res.WasMatched = true

		rev, err := repo.FindReverseAlarm(ctx, tx, a.FromHandle, a.TargetHandle)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil // counterpart withdrew concurrently; nothing to revert
			}
			return err
		}
		recipientA = rev
		res.CounterpartID = rev.UserID

		if err := repo.UpdateAlarmStatus(ctx, tx, rev.ID, domain.AlarmStatusWaiting); err != nil {
			return err
		}
		return repo.DeleteMatchByPair(ctx, tx, a.UserID, rev.UserID)
	})
	if err != nil {
		return nil, err
	}

	if s.Announcer != nil && recipientA != nil {
		if u, err := repo.GetUser(ctx, s.DB, recipientA.UserID); err == nil {
			recipient = u
		}
		if recipient != nil {
			s.Announcer.AnnounceUnmatch(ctx,
				notify.Party{User: *recipient, Handle: recipientA.FromHandle},
				withdrawn.FromHandle)
		}
	}
	return &res, nil
}

// List returns the user's active alarms, newest first.
func (s *AlarmService) List(ctx context.Context, userID string) ([]domain.Alarm, error) {
	return repo.ListActiveAlarms(ctx, s.DB, userID)
}

// ListPage returns a page of the user's active alarms and the total count.
// It applies defaults for invalid page/pageSize.
func (s *AlarmService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Alarm, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountActiveAlarms(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Alarm{}, 0, nil
	}

	items, err := repo.ListActiveAlarmsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// Package domain defines the persistence models for users, alarms, and
// matches. These types are mapped with GORM and form the core data layer
// of the mutual-interest alarm application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Alarm status values. An alarm starts out waiting and flips to matched the
// moment a reverse alarm (the counterpart declaring this alarm's owner) is
// detected. The status is denormalized from the Match table; the Match row is
// authoritative.
const (
	AlarmStatusWaiting = "waiting"
	AlarmStatusMatched = "matched"
)

// User represents a participant identity. Users are created on first login
// with an opaque external account id and may register a public handle later;
// the handle is the matching key and is deliberately NOT unique (ownership of
// a handle is not verified, collisions are tolerated at match time).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - AccountID: externally-verified account identifier; unique.
//   - Handle: public handle used as the matching key; may be empty until
//     registered, may be shared by several users.
//   - Name: optional display name captured at login.
//   - PushEnabled / InAppEnabled: notification preference flags consulted by
//     the fan-out before dispatching an external push.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type User struct {
	ID           string         `json:"id"             gorm:"type:char(36);primaryKey"`
	AccountID    string         `json:"account_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_users_account"`
	Handle       string         `json:"handle"         gorm:"type:varchar(64);index:idx_users_handle"`
	Name         string         `json:"name,omitempty" gorm:"type:varchar(128)"`
	PushEnabled  bool           `json:"push_enabled"   gorm:"not null;default:true"`
	InAppEnabled bool           `json:"in_app_enabled" gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Alarm represents one user's private declaration of interest in a target
// handle. It carries a snapshot of the declarer's own handle at submission
// time so that matching works on the handle pair even if the profile handle
// is later corrected.
//
// Withdrawal is a soft delete: the row is retained with DeletedAt set so the
// same (user, target) declaration can be restored in place. The unique index
// on (user_id, target_handle) spans soft-deleted rows too, which makes
// "at most one record per key" a storage constraint rather than a query-shape
// accident: re-declaring must go through the restore path.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owning user; indexed, cascade-deleted with the user.
//   - FromHandle: declarer's own handle at submission time.
//   - TargetHandle: the declared target handle.
//   - Status: "waiting" or "matched" (enforced by DB constraint). Derived
//     from Match existence; kept in sync by the alarm service.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: withdrawal marker; withdrawn alarms are invisible to reads
//     and to match detection.
type Alarm struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"       gorm:"type:char(36);not null;index;uniqueIndex:ux_alarms_user_target,priority:1"`
	FromHandle   string         `json:"from_handle"   gorm:"type:varchar(64);not null;index:idx_alarms_from"`
	TargetHandle string         `json:"target_handle" gorm:"type:varchar(64);not null;index:idx_alarms_target;uniqueIndex:ux_alarms_user_target,priority:2"`
	Status       string         `json:"status"        gorm:"type:varchar(16);not null;default:'waiting';check:status IN ('waiting','matched')"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`

	// User is the owning participant. Alarms are cascade-deleted when the
	// account is disconnected.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Alarm.
func (Alarm) TableName() string { return "alarms" }

// Match records the symmetric fact that two users' active alarms name each
// other. The pair is stored in canonical order (User1ID < User2ID) so that
// existence lookups are a single comparison and the unique index makes
// concurrent mutual declarations race-safe by construction.
type Match struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	User1ID   string    `json:"user1_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_match_pair,priority:1"`
	User2ID   string    `json:"user2_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_match_pair,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	User1 User `json:"-" gorm:"foreignKey:User1ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User2 User `json:"-" gorm:"foreignKey:User2ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string { return "matches" }

// CanonicalPair orders two user ids lexicographically for storage in a Match
// row. Callers must use it for both writes and lookups so that every pair has
// a single stored representation.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

package domain

import (
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestTableNames(t *testing.T) {
	if got := (User{}).TableName(); got != "users" {
		t.Fatalf("User table = %q", got)
	}
	if got := (Alarm{}).TableName(); got != "alarms" {
		t.Fatalf("Alarm table = %q", got)
	}
	if got := (Match{}).TableName(); got != "matches" {
		t.Fatalf("Match table = %q", got)
	}
}

func TestCanonicalPair_Orders(t *testing.T) {
	a, b := CanonicalPair("bbb", "aaa")
	if a != "aaa" || b != "bbb" {
		t.Fatalf("CanonicalPair(bbb,aaa) = (%s,%s)", a, b)
	}
	a, b = CanonicalPair("aaa", "bbb")
	if a != "aaa" || b != "bbb" {
		t.Fatalf("CanonicalPair(aaa,bbb) = (%s,%s)", a, b)
	}
}

func TestCanonicalPair_StableForLookup(t *testing.T) {
	// The same unordered pair must always map to the same stored order.
	x1, y1 := CanonicalPair("u-2", "u-1")
	x2, y2 := CanonicalPair("u-1", "u-2")
	if x1 != x2 || y1 != y2 {
		t.Fatalf("pair not canonical: (%s,%s) vs (%s,%s)", x1, y1, x2, y2)
	}
}

func TestAlarm_ZeroValueIsNotDeleted(t *testing.T) {
	var a Alarm
	if a.DeletedAt.Valid {
		t.Fatal("zero alarm must not be soft-deleted")
	}
	a.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	if !a.DeletedAt.Valid {
		t.Fatal("expected deletion marker to be set")
	}
}

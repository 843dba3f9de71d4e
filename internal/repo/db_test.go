package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if _, err := CreateUser(context.Background(), db, "acct-db", ""); err != nil {
		t.Fatalf("write after migrate: %v", err)
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "nope", "app.db"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestAlarmsStats(t *testing.T) {
	db := newRepoDB(t)
	u := seedUser(t, db, "bob")

	count, maxTS, err := AlarmsStats(context.Background(), db, u.ID)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d,%v,%v)", count, maxTS, err)
	}

	a, _ := CreateAlarm(context.Background(), db, u.ID, "bob", "alice")
	count, maxTS, err = AlarmsStats(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("AlarmsStats: %v", err)
	}
	if count != 1 || maxTS == nil {
		t.Fatalf("stats after insert = (%d,%v)", count, maxTS)
	}
	if time.Since(*maxTS) > time.Minute {
		t.Fatalf("stale maxUpdatedAt: %v", *maxTS)
	}

	// Withdrawing removes the row from the stats.
	if err := SoftDeleteAlarm(context.Background(), db, a.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	count, _, err = AlarmsStats(context.Background(), db, u.ID)
	if err != nil || count != 0 {
		t.Fatalf("stats after withdraw = (%d,%v)", count, err)
	}
}

package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUser_DefaultsAndUniqueAccount(t *testing.T) {
	db := newRepoDB(t)

	u, err := CreateUser(context.Background(), db, "acct-1", "Haeun")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || !u.PushEnabled || !u.InAppEnabled {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	if _, err := CreateUser(context.Background(), db, "acct-1", ""); err == nil {
		t.Fatal("expected unique violation on duplicate account id")
	}
}

func TestGetUserByAccountID(t *testing.T) {
	db := newRepoDB(t)
	created, _ := CreateUser(context.Background(), db, "acct-2", "")

	got, err := GetUserByAccountID(context.Background(), db, "acct-2")
	if err != nil {
		t.Fatalf("GetUserByAccountID: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("wrong user: %+v", got)
	}

	if _, err := GetUserByAccountID(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserHandle_AllowsCollisions(t *testing.T) {
	db := newRepoDB(t)
	u1, _ := CreateUser(context.Background(), db, "acct-3", "")
	u2, _ := CreateUser(context.Background(), db, "acct-4", "")

	// Two users may claim the same handle; ownership is not verified.
	if err := UpdateUserHandle(context.Background(), db, u1.ID, "alice"); err != nil {
		t.Fatalf("handle u1: %v", err)
	}
	if err := UpdateUserHandle(context.Background(), db, u2.ID, "alice"); err != nil {
		t.Fatalf("handle u2 (collision) should be allowed: %v", err)
	}
}

func TestUpdateUserSettings_Partial(t *testing.T) {
	db := newRepoDB(t)
	u, _ := CreateUser(context.Background(), db, "acct-5", "")

	off := false
	if err := UpdateUserSettings(context.Background(), db, u.ID, &off, nil); err != nil {
		t.Fatalf("UpdateUserSettings: %v", err)
	}
	got, _ := GetUser(context.Background(), db, u.ID)
	if got.PushEnabled || !got.InAppEnabled {
		t.Fatalf("partial update wrong: push=%v inApp=%v", got.PushEnabled, got.InAppEnabled)
	}

	if err := UpdateUserSettings(context.Background(), db, "missing", &off, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHardDeleteUser_WithAlarmCascade(t *testing.T) {
	db := newRepoDB(t)
	u, _ := CreateUser(context.Background(), db, "acct-6", "")
	_ = UpdateUserHandle(context.Background(), db, u.ID, "bob")
	if _, err := CreateAlarm(context.Background(), db, u.ID, "bob", "alice"); err != nil {
		t.Fatalf("seed alarm: %v", err)
	}

	if err := HardDeleteAlarmsForUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("HardDeleteAlarmsForUser: %v", err)
	}
	if err := HardDeleteUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("HardDeleteUser: %v", err)
	}

	if _, err := GetUser(context.Background(), db, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user should be gone, got %v", err)
	}
	if _, err := GetAlarmAnyState(context.Background(), db, u.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("alarms should be gone, got %v", err)
	}
}

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

// runInline makes push dispatches run synchronously for the duration of a
// test.
func runInline(t *testing.T) {
	t.Helper()
	orig := spawn
	spawn = func(fn func()) { fn() }
	t.Cleanup(func() { spawn = orig })
}

// fakeSessions records real-time deliveries.
type fakeSessions struct {
	sent      map[string][]Event
	connected map[string]bool
}

func newFakeSessions(connected ...string) *fakeSessions {
	f := &fakeSessions{sent: map[string][]Event{}, connected: map[string]bool{}}
	for _, id := range connected {
		f.connected[id] = true
	}
	return f
}

func (f *fakeSessions) Send(userID string, v any) bool {
	if !f.connected[userID] {
		return false
	}
	f.sent[userID] = append(f.sent[userID], v.(Event))
	return true
}

// pushCall records one provider dispatch.
type pushCall struct {
	userKey  string
	template string
	tmplCtx  map[string]string
}

type fakePusher struct {
	calls []pushCall
	err   error
}

func (f *fakePusher) Notify(_ context.Context, userKey, templateCode string, tmplCtx map[string]string) error {
	f.calls = append(f.calls, pushCall{userKey: userKey, template: templateCode, tmplCtx: tmplCtx})
	return f.err
}

func party(id, accountID, handle string, push, inApp bool) Party {
	return Party{
		User: domain.User{
			ID:           id,
			AccountID:    accountID,
			PushEnabled:  push,
			InAppEnabled: inApp,
		},
		Handle: handle,
	}
}

func TestAnnounceMatch_RealtimeAndPushBothSides(t *testing.T) {
	runInline(t)
	sessions := newFakeSessions("u1", "u2")
	pusher := &fakePusher{}
	n := &Notifier{Sessions: sessions, Pusher: pusher, MatchTemplate: "match_made", PushTimeout: time.Second}

	a := party("u1", "acct-1", "bob", true, true)
	b := party("u2", "acct-2", "alice", true, true)
	n.AnnounceMatch(context.Background(), a, b)

	// Each side receives the other's handle.
	if got := sessions.sent["u1"]; len(got) != 1 || got[0].Type != EventMatched || got[0].CounterpartHandle != "alice" {
		t.Fatalf("u1 events: %+v", got)
	}
	if got := sessions.sent["u2"]; len(got) != 1 || got[0].CounterpartHandle != "bob" {
		t.Fatalf("u2 events: %+v", got)
	}

	if len(pusher.calls) != 2 {
		t.Fatalf("push calls = %d, want 2", len(pusher.calls))
	}
	for i, want := range []pushCall{
		{userKey: "acct-1", template: "match_made", tmplCtx: map[string]string{"partner_handle": "alice"}},
		{userKey: "acct-2", template: "match_made", tmplCtx: map[string]string{"partner_handle": "bob"}},
	} {
		got := pusher.calls[i]
		if got.userKey != want.userKey || got.template != want.template ||
			got.tmplCtx["partner_handle"] != want.tmplCtx["partner_handle"] {
			t.Fatalf("push call %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestAnnounceMatch_PushSuppressedByPreferences(t *testing.T) {
	runInline(t)
	sessions := newFakeSessions("u1", "u2")
	pusher := &fakePusher{}
	n := &Notifier{Sessions: sessions, Pusher: pusher, MatchTemplate: "match_made", PushTimeout: time.Second}

	// u1 has opted out of every notification surface; u2 keeps one flag on.
	a := party("u1", "acct-1", "bob", false, false)
	b := party("u2", "acct-2", "alice", false, true)
	n.AnnounceMatch(context.Background(), a, b)

	if len(pusher.calls) != 1 || pusher.calls[0].userKey != "acct-2" {
		t.Fatalf("only u2 should be pushed: %+v", pusher.calls)
	}
	// Suppression applies to push only; the real-time event still flows.
	if len(sessions.sent["u1"]) != 1 {
		t.Fatalf("u1 realtime events: %+v", sessions.sent["u1"])
	}
}

func TestAnnounceMatch_PushFailureIsSwallowed(t *testing.T) {
	runInline(t)
	sessions := newFakeSessions()
	pusher := &fakePusher{err: errors.New("provider down")}
	n := &Notifier{Sessions: sessions, Pusher: pusher, MatchTemplate: "match_made", PushTimeout: time.Second}

	// Must not panic or propagate; both dispatches are still attempted.
	n.AnnounceMatch(context.Background(),
		party("u1", "acct-1", "bob", true, true),
		party("u2", "acct-2", "alice", true, true))

	if len(pusher.calls) != 2 {
		t.Fatalf("push calls = %d, want 2", len(pusher.calls))
	}
}

func TestNudgeMatch_NoPush(t *testing.T) {
	runInline(t)
	sessions := newFakeSessions("u1")
	pusher := &fakePusher{}
	n := &Notifier{Sessions: sessions, Pusher: pusher, MatchTemplate: "match_made", PushTimeout: time.Second}

	n.NudgeMatch(context.Background(),
		party("u1", "acct-1", "bob", true, true),
		party("u2", "acct-2", "alice", true, true))

	if len(pusher.calls) != 0 {
		t.Fatalf("nudge must not push: %+v", pusher.calls)
	}
	if len(sessions.sent["u1"]) != 1 {
		t.Fatalf("u1 events: %+v", sessions.sent["u1"])
	}
	// u2 has no live session; the miss is silent.
	if len(sessions.sent["u2"]) != 0 {
		t.Fatalf("u2 events: %+v", sessions.sent["u2"])
	}
}

func TestAnnounceUnmatch_RealtimeOnlyToRecipient(t *testing.T) {
	runInline(t)
	sessions := newFakeSessions("u2")
	pusher := &fakePusher{}
	n := &Notifier{Sessions: sessions, Pusher: pusher, MatchTemplate: "match_made", PushTimeout: time.Second}

	n.AnnounceUnmatch(context.Background(), party("u2", "acct-2", "alice", true, true), "bob")

	if len(pusher.calls) != 0 {
		t.Fatalf("unmatch must never push: %+v", pusher.calls)
	}
	got := sessions.sent["u2"]
	if len(got) != 1 || got[0].Type != EventUnmatched || got[0].ByHandle != "bob" {
		t.Fatalf("u2 events: %+v", got)
	}
}

// Package notify implements the notification fan-out: when a match is created
// or destroyed the affected users are informed over the real-time channel
// (best effort, no retry) and, for match events, through the external push
// provider (asynchronous, off the request critical path).
//
// Delivery guarantees, by design:
//   - Real-time events are fire-and-forget. A missed delivery is acceptable
//     because the authoritative state is already persisted and re-read on the
//     next list/load.
//   - Push dispatch runs on a detached goroutine with its own timeout; its
//     failure is counted and logged but can never fail or roll back the
//     matching operation.
//   - Only the request that actually created the Match row announces it; the
//     loser of a concurrent mutual declaration re-sends the real-time nudge
//     only, so each user receives at most one push per match.
package notify

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

// Party pairs a user with the handle by which the counterpart knows them
// (the alarm's declared-handle snapshot, which may differ from the current
// profile handle).
type Party struct {
	User   domain.User
	Handle string
}

// SessionSender delivers an event to a user's live real-time channel, if one
// is registered. Implementations must be non-blocking from the caller's
// perspective and report whether a delivery was attempted.
type SessionSender interface {
	Send(userID string, v any) bool
}

// Pusher is the logical contract of the external push-notification provider.
// userKey is the opaque external account id; templateCode selects the
// provider-side message template; tmplCtx carries template variables.
type Pusher interface {
	Notify(ctx context.Context, userKey, templateCode string, tmplCtx map[string]string) error
}

// Event is the payload pushed over the real-time channel.
type Event struct {
	Type              string `json:"type"`
	CounterpartHandle string `json:"counterpart_handle,omitempty"`
	ByHandle          string `json:"by_handle,omitempty"`
}

// Real-time event kinds.
const (
	EventMatched   = "matched"
	EventUnmatched = "unmatched"
)

var (
	pushDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_total",
			Help: "External push dispatch attempts by outcome.",
		},
		[]string{"outcome"}, // sent | failed | suppressed
	)

	realtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Real-time events emitted, by kind and delivery result.",
		},
		[]string{"event", "delivered"},
	)
)

func init() {
	prometheus.MustRegister(pushDispatch, realtimeEvents)
}

// spawn runs fn on its own goroutine. Declared as a seam so tests can run
// dispatches inline.
var spawn = func(fn func()) { go fn() }

// Notifier fans match/unmatch events out to the real-time channel and the
// push provider. The zero value is not usable; all fields must be set.
type Notifier struct {
	// Sessions is the registry of live real-time connections.
	Sessions SessionSender
	// Pusher dispatches to the external provider. May be a no-op when the
	// provider is disabled.
	Pusher Pusher
	// MatchTemplate is the provider template code for match notifications.
	MatchTemplate string
	// PushTimeout bounds a single push dispatch.
	PushTimeout time.Duration
}

// AnnounceMatch informs both sides of a freshly created match: a real-time
// "matched" event to whoever is connected, and an asynchronous push to each
// user whose notification preferences allow it. Called only on the path that
// transitioned the Match from non-existent to existent.
func (n *Notifier) AnnounceMatch(ctx context.Context, a, b Party) {
	n.NudgeMatch(ctx, a, b)
	n.dispatchPush(a, b.Handle)
	n.dispatchPush(b, a.Handle)
}

// NudgeMatch re-sends the real-time "matched" event to both sides without
// touching the push provider. Used when an already-existing match is
// re-detected (duplicate or concurrent declaration).
func (n *Notifier) NudgeMatch(_ context.Context, a, b Party) {
	n.emit(a.User.ID, Event{Type: EventMatched, CounterpartHandle: b.Handle})
	n.emit(b.User.ID, Event{Type: EventMatched, CounterpartHandle: a.Handle})
}

// AnnounceUnmatch informs the remaining side that the counterpart withdrew.
// Only the real-time channel is used; unmatch events carry no push.
func (n *Notifier) AnnounceUnmatch(_ context.Context, recipient Party, byHandle string) {
	n.emit(recipient.User.ID, Event{Type: EventUnmatched, ByHandle: byHandle})
}

// emit performs a single best-effort real-time delivery.
func (n *Notifier) emit(userID string, ev Event) {
	delivered := n.Sessions.Send(userID, ev)
	realtimeEvents.WithLabelValues(ev.Type, boolLabel(delivered)).Inc()
	if !delivered {
		log.Debug().Str("user_id", userID).Str("event", ev.Type).Msg("no live session, event skipped")
	}
}

// dispatchPush requests an external push for one user on a detached
// goroutine, gated by the user's notification preference flags. Both flags
// off suppresses the call entirely.
func (n *Notifier) dispatchPush(p Party, counterpartHandle string) {
	if !p.User.PushEnabled && !p.User.InAppEnabled {
		pushDispatch.WithLabelValues("suppressed").Inc()
		log.Debug().Str("user_id", p.User.ID).Msg("push suppressed by user preferences")
		return
	}

	userKey := p.User.AccountID
	userID := p.User.ID
	timeout := n.PushTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	spawn(func() {
		// Deliberately detached from the request context: the API response
		// does not wait on push delivery and must not cancel it.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		tmplCtx := map[string]string{"partner_handle": counterpartHandle}
		if err := n.Pusher.Notify(ctx, userKey, n.MatchTemplate, tmplCtx); err != nil {
			pushDispatch.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("user_id", userID).Msg("push dispatch failed")
			return
		}
		pushDispatch.WithLabelValues("sent").Inc()
		log.Info().Str("user_id", userID).Msg("push dispatched")
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

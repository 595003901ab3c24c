// Package tracker correlates inbound replies with the check-in prompt that
// solicited them. State is memory-resident only: prompts do not survive a
// process restart.
package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingPrompt is the single outstanding check-in awaiting a reply from
// one recipient.
type PendingPrompt struct {
	ID             string
	RecipientID    string
	Kind           string
	Text           string
	SentAt         time.Time
	ResponseWindow time.Duration
}

// ExpiresAt is the instant the prompt stops being answerable.
func (p PendingPrompt) ExpiresAt() time.Time {
	return p.SentAt.Add(p.ResponseWindow)
}

// Tracker holds at most one live prompt per recipient. Record always
// overwrites; Lookup applies lazy expiry so an expired prompt behaves as
// absent whether or not the sweep has run. All operations share one lock
// because the send path and the inbound-reply path race.
type Tracker struct {
	mu        sync.Mutex
	pending   map[string]PendingPrompt
	sweepEach time.Duration
	lastSweep time.Time

	now func() time.Time
	log *zap.SugaredLogger
}

// New creates a tracker that sweeps expired entries opportunistically, at
// most once per sweepEach, piggybacked on other operations.
func New(sweepEach time.Duration, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		pending:   make(map[string]PendingPrompt),
		sweepEach: sweepEach,
		now:       time.Now,
		log:       log,
	}
}

// Record stores a fresh prompt for the recipient, unconditionally
// overwriting any existing one: the newest prompt always wins.
func (t *Tracker) Record(recipientID, kind, text string, responseWindow time.Duration) PendingPrompt {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeSweepLocked()

	p := PendingPrompt{
		ID:             uuid.NewString(),
		RecipientID:    recipientID,
		Kind:           kind,
		Text:           text,
		SentAt:         t.now(),
		ResponseWindow: responseWindow,
	}
	t.pending[recipientID] = p
	return p
}

// Lookup returns the live prompt for the recipient. An expired prompt is
// reported as absent even before the sweep removes it.
func (t *Tracker) Lookup(recipientID string) (PendingPrompt, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeSweepLocked()

	p, ok := t.pending[recipientID]
	if !ok || t.expiredLocked(p) {
		return PendingPrompt{}, false
	}
	return p, true
}

// Clear removes the recipient's slot and reports whether a live prompt was
// actually present. Clearing nothing is a normal outcome (e.g. a reply
// arriving after expiry), not an error.
func (t *Tracker) Clear(recipientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeSweepLocked()

	p, ok := t.pending[recipientID]
	if !ok {
		return false
	}
	delete(t.pending, recipientID)
	return !t.expiredLocked(p)
}

// Sweep removes all expired entries and returns how many were dropped. It
// exists to bound memory; correctness never depends on it running.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked()
}

// Len reports how many slots are occupied, expired ones included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) expiredLocked(p PendingPrompt) bool {
	return t.now().After(p.ExpiresAt())
}

func (t *Tracker) maybeSweepLocked() {
	if t.sweepEach <= 0 || t.now().Sub(t.lastSweep) < t.sweepEach {
		return
	}
	t.sweepLocked()
}

func (t *Tracker) sweepLocked() int {
	removed := 0
	for id, p := range t.pending {
		if t.expiredLocked(p) {
			delete(t.pending, id)
			removed++
		}
	}
	t.lastSweep = t.now()
	if removed > 0 {
		t.log.Debugw("Swept expired prompts", "removed", removed, "remaining", len(t.pending))
	}
	return removed
}

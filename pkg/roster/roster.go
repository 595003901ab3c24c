// Package roster implements the roster and preference providers on top of
// the static config. Enable/disable state is mutable at runtime (pause and
// resume commands); everything else is read-only.
package roster

import (
	"sync"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/config"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
	"go.uber.org/zap"
)

type member struct {
	rec       schedule.Recipient
	enabled   bool
	lateNight bool
	count     int
	quiet     *quietWindow
}

type quietWindow struct {
	start schedule.TimeOfDay
	end   schedule.TimeOfDay
}

// Roster holds the configured recipients and their preferences.
type Roster struct {
	mu      sync.RWMutex
	members map[string]*member
	order   []string // config order, for stable fan-out

	globalQuietStart schedule.TimeOfDay
	globalQuietEnd   schedule.TimeOfDay
}

// FromConfig builds the roster. Recipients with a malformed quiet-hours
// override keep the global bounds; the bad entry is logged and ignored.
func FromConfig(entries []config.RecipientConfig, quietStart, quietEnd schedule.TimeOfDay, log *zap.SugaredLogger) *Roster {
	r := &Roster{
		members:          make(map[string]*member),
		globalQuietStart: quietStart,
		globalQuietEnd:   quietEnd,
	}
	for _, e := range entries {
		if e.ID == "" || e.Channel == "" || e.ChatID == "" {
			log.Warnw("Skipping malformed roster entry", "id", e.ID, "channel", e.Channel)
			continue
		}
		m := &member{
			rec:       schedule.Recipient{ID: e.ID, Channel: e.Channel, ChatID: e.ChatID},
			enabled:   e.Enabled,
			lateNight: e.LateNight,
			count:     e.RandomCheckins,
		}
		if e.QuietStart != "" && e.QuietEnd != "" {
			start, errS := schedule.ParseTimeOfDay(e.QuietStart)
			end, errE := schedule.ParseTimeOfDay(e.QuietEnd)
			if errS != nil || errE != nil {
				log.Warnw("Ignoring malformed quiet-hours override", "recipient", e.ID, "start", e.QuietStart, "end", e.QuietEnd)
			} else {
				m.quiet = &quietWindow{start: start, end: end}
			}
		}
		r.members[e.ID] = m
		r.order = append(r.order, e.ID)
	}
	return r
}

// ActiveRecipients returns enabled recipients in config order.
func (r *Roster) ActiveRecipients() []schedule.Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]schedule.Recipient, 0, len(r.order))
	for _, id := range r.order {
		if m := r.members[id]; m.enabled {
			out = append(out, m.rec)
		}
	}
	return out
}

// Resolve maps an inbound (channel, sender) address back to a roster
// recipient.
func (r *Roster) Resolve(channel, senderID string) (schedule.Recipient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m.rec.Channel == channel && (m.rec.ChatID == senderID || m.rec.ID == senderID) {
			return m.rec, true
		}
	}
	return schedule.Recipient{}, false
}

// IsEnabled reports whether the recipient currently receives check-ins.
func (r *Roster) IsEnabled(recipientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[recipientID]
	return ok && m.enabled
}

// SetEnabled flips the pause/resume state. Unknown ids are ignored.
func (r *Roster) SetEnabled(recipientID string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[recipientID]
	if !ok {
		return false
	}
	m.enabled = enabled
	return true
}

// LateNightEnabled reports the late-night window opt-in.
func (r *Roster) LateNightEnabled(recipientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[recipientID]
	return ok && m.lateNight
}

// PreferredEventCount is the recipient's cap on randomized check-ins per
// day; 0 means no preference.
func (r *Roster) PreferredEventCount(recipientID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.members[recipientID]; ok {
		return m.count
	}
	return 0
}

// InQuietHours reports whether now falls outside the recipient's allowed
// window. A per-recipient override may wrap midnight (start > end); the
// global bounds never do.
func (r *Roster) InQuietHours(recipientID string, now time.Time) bool {
	r.mu.RLock()
	q := quietWindow{start: r.globalQuietStart, end: r.globalQuietEnd}
	if m, ok := r.members[recipientID]; ok && m.quiet != nil {
		q = *m.quiet
	}
	r.mu.RUnlock()

	minutes := now.Hour()*60 + now.Minute()
	lo, hi := q.start.Minutes(), q.end.Minutes()
	if lo <= hi {
		return minutes < lo || minutes > hi
	}
	// Wrap-around window: allowed span crosses midnight.
	return minutes < lo && minutes > hi
}

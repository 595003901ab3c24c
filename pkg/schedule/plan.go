package schedule

import (
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ScheduledEvent is a concrete check-in occurrence produced for one day.
// Value type; a new day produces entirely new instances.
type ScheduledEvent struct {
	Name    string
	Weekday time.Weekday
	At      time.Time
}

// Materializer turns the weekday base-time table into concrete jittered
// timestamps for "today".
type Materializer struct {
	Table         WeekdayTable
	JitterMinutes int
	QuietStart    TimeOfDay
	QuietEnd      TimeOfDay

	rng *rand.Rand
	log *zap.SugaredLogger
}

// NewMaterializer wires a materializer around the given table. rng is the
// jitter source; pass a seeded one in tests.
func NewMaterializer(table WeekdayTable, jitterMinutes int, quietStart, quietEnd TimeOfDay, rng *rand.Rand, log *zap.SugaredLogger) *Materializer {
	return &Materializer{
		Table:         table,
		JitterMinutes: jitterMinutes,
		QuietStart:    quietStart,
		QuietEnd:      quietEnd,
		rng:           rng,
		log:           log,
	}
}

// PlanDay materializes now's weekday row: jitter, clamp into quiet hours,
// drop events already in the past (safe to call mid-day after a restart),
// sort ascending. Unknown event names are logged and skipped; they never
// abort the rest of the day.
//
// Two calls for the same day are not required to produce identical times;
// idempotency lives at the job-scheduler layer via deterministic job ids.
func (m *Materializer) PlanDay(now time.Time) []ScheduledEvent {
	day := now.Weekday()

	var events []ScheduledEvent
	for _, entry := range m.Table[day] {
		if !KnownKind(entry.Name) {
			m.log.Warnw("Skipping unknown event in weekday table", "event", entry.Name, "weekday", day.String())
			continue
		}
		at := entry.At.On(now)
		at = ApplyJitter(m.rng, at, m.JitterMinutes)
		at = ClampToQuietHours(at, m.QuietStart, m.QuietEnd)
		if !at.After(now) {
			continue // already passed today
		}
		events = append(events, ScheduledEvent{Name: entry.Name, Weekday: day, At: at})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events
}

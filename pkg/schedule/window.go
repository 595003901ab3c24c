package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// MustTimeOfDay parses "HH:MM" and panics on malformed input. For wiring
// built-in defaults only.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On combines the time of day with the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// TimeWindow is a named band of the day used by the randomized scheduler.
type TimeWindow struct {
	Name  string
	Start TimeOfDay
	End   TimeOfDay
	// Probability is the Bernoulli inclusion chance for optional windows.
	Probability float64
	// AlwaysInclude marks the window as mandatory: it is always selected
	// and never dropped when trimming to a requested count.
	AlwaysInclude bool
	// OptIn windows (e.g. late-night) are considered only for recipients
	// that enabled them.
	OptIn bool
}

// Validate reports a malformed window definition.
func (w TimeWindow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("time window without a name")
	}
	if w.End.Minutes() <= w.Start.Minutes() {
		return fmt.Errorf("time window %q: end %s not after start %s", w.Name, w.End, w.Start)
	}
	if w.Probability < 0 || w.Probability > 1 {
		return fmt.Errorf("time window %q: probability %v outside [0,1]", w.Name, w.Probability)
	}
	return nil
}

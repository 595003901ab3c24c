package schedule

import (
	"math/rand"
	"time"
)

// ApplyJitter shifts t by a uniform random offset in [-maxMinutes, +maxMinutes].
// The randomness source is passed in so callers can seed it for tests.
func ApplyJitter(rng *rand.Rand, t time.Time, maxMinutes int) time.Time {
	if maxMinutes <= 0 {
		return t
	}
	offset := rng.Intn(2*maxMinutes+1) - maxMinutes
	return t.Add(time.Duration(offset) * time.Minute)
}

// ClampToQuietHours pulls t inside the same-day [quietStart, quietEnd]
// interval: too early becomes quietStart, too late becomes quietEnd.
// Wrap-around quiet hours are a per-recipient preference concern and are
// not handled here.
func ClampToQuietHours(t time.Time, quietStart, quietEnd TimeOfDay) time.Time {
	lo := quietStart.On(t)
	hi := quietEnd.On(t)
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

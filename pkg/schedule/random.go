package schedule

import (
	"math/rand"
	"sort"
	"time"
)

// WindowPick is a sampled check-in time inside a named window.
type WindowPick struct {
	Window string
	At     TimeOfDay
}

// PickOptions carries the per-recipient knobs for one planning pass.
type PickOptions struct {
	// Count caps how many windows survive selection; 0 means no cap.
	// Mandatory windows are never dropped to satisfy the cap.
	Count int
	// OptInEnabled makes opt-in windows (late-night) eligible at all.
	OptInEnabled bool
}

// RandomPlanner samples naturalistic check-in times inside the window
// catalog.
type RandomPlanner struct {
	Windows    []TimeWindow
	MinSpacing time.Duration

	rng *rand.Rand
}

// NewRandomPlanner builds a planner over the catalog. rng is injected for
// deterministic tests.
func NewRandomPlanner(windows []TimeWindow, minSpacing time.Duration, rng *rand.Rand) *RandomPlanner {
	return &RandomPlanner{Windows: windows, MinSpacing: minSpacing, rng: rng}
}

// Pick selects windows (mandatory always, optional by Bernoulli draw,
// opt-in only when enabled and its draw succeeds), samples one uniform time
// inside each, then walks the sorted candidates dropping any that land
// closer than MinSpacing to the previously accepted one.
//
// The spacing pass is a best-effort filter, not a resampling search: it can
// return fewer picks than windows were selected. Callers must treat the
// result as advisory.
func (p *RandomPlanner) Pick(opts PickOptions) []WindowPick {
	var mandatory, optional []TimeWindow
	for _, w := range p.Windows {
		switch {
		case w.OptIn:
			if opts.OptInEnabled && p.rng.Float64() < w.Probability {
				optional = append(optional, w)
			}
		case w.AlwaysInclude:
			mandatory = append(mandatory, w)
		default:
			if p.rng.Float64() < w.Probability {
				optional = append(optional, w)
			}
		}
	}

	if opts.Count > 0 && len(mandatory)+len(optional) > opts.Count {
		keep := opts.Count - len(mandatory)
		if keep < 0 {
			keep = 0
		}
		optional = optional[:keep]
	}

	selected := append(mandatory, optional...)

	picks := make([]WindowPick, 0, len(selected))
	for _, w := range selected {
		picks = append(picks, WindowPick{Window: w.Name, At: p.sample(w)})
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].At.Minutes() < picks[j].At.Minutes() })

	spacing := int(p.MinSpacing.Minutes())
	out := picks[:0]
	lastAccepted := -1
	for _, c := range picks {
		if lastAccepted >= 0 && c.At.Minutes()-lastAccepted < spacing {
			continue
		}
		out = append(out, c)
		lastAccepted = c.At.Minutes()
	}
	return out
}

// sample draws a uniform time of day in [w.Start, w.End].
func (p *RandomPlanner) sample(w TimeWindow) TimeOfDay {
	span := w.End.Minutes() - w.Start.Minutes()
	m := w.Start.Minutes()
	if span > 0 {
		m += p.rng.Intn(span + 1)
	}
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// Package prompts provides pre-authored check-in text variants.
package prompts

import (
	"math/rand"
	"sync"

	"github.com/ritmohq/ritmo-go/pkg/schedule"
)

// StaticProvider picks uniformly among pre-authored variants per prompt
// kind. Kinds without their own variants (randomized window names) fall
// back to the generic check-in pool.
type StaticProvider struct {
	mu       sync.Mutex
	rng      *rand.Rand
	variants map[string][]string
	generic  []string
}

// NewStaticProvider builds the provider with the built-in texts.
func NewStaticProvider(rng *rand.Rand) *StaticProvider {
	return &StaticProvider{
		rng: rng,
		variants: map[string][]string{
			schedule.KindPlanning: {
				"Morning! What are your top priorities for today?",
				"New day. What do you want to get done before evening?",
				"What's the plan for today? A rough sketch is fine.",
			},
			schedule.KindStatus: {
				"Quick check-in: how is the day going so far?",
				"Midday pulse — what have you knocked out, what's stuck?",
				"How's progress? Anything blocking you right now?",
			},
			schedule.KindClosing: {
				"Wrapping up — what got done today?",
				"End of the workday: what landed, what rolls over?",
				"Before you close the laptop: what's today's result?",
			},
			schedule.KindReflection: {
				"One thing that went well today, one you'd do differently?",
				"Looking back at today — what stands out?",
			},
			schedule.KindDigest: {
				"Weekend digest: how did the week land for you, overall?",
				"No rush today — just curious how your week wrapped up.",
			},
			schedule.KindFollowUp: {
				"Still there? Even a one-liner counts.",
				"No pressure — a quick reply keeps the streak alive.",
			},
			schedule.KindAck: {
				"Got it, logged.",
				"Noted — thanks!",
				"Saved. Keep it up.",
			},
		},
		generic: []string{
			"Surprise check-in: what are you up to right now?",
			"Random pulse — how's it going at the moment?",
			"Quick one: what's on your plate right now?",
		},
	}
}

// Text returns one variant for the kind.
func (p *StaticProvider) Text(kind string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, ok := p.variants[kind]
	if !ok || len(pool) == 0 {
		pool = p.generic
	}
	return pool[p.rng.Intn(len(pool))]
}

package prompts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmohq/ritmo-go/pkg/schedule"
)

func TestText_DrawsFromKindPool(t *testing.T) {
	p := NewStaticProvider(rand.New(rand.NewSource(1)))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		text := p.Text(schedule.KindPlanning)
		require.NotEmpty(t, text)
		seen[text] = true
	}
	// All three planning variants show up over enough draws.
	assert.Len(t, seen, 3)
}

func TestText_WindowKindsFallBackToGenericPool(t *testing.T) {
	p := NewStaticProvider(rand.New(rand.NewSource(2)))

	generic := map[string]bool{}
	for i := 0; i < 100; i++ {
		generic[p.Text("morning")] = true
	}
	for i := 0; i < 100; i++ {
		assert.Contains(t, generic, p.Text("late-night"))
	}
}

func TestText_EveryKindHasText(t *testing.T) {
	p := NewStaticProvider(rand.New(rand.NewSource(3)))

	kinds := []string{
		schedule.KindPlanning, schedule.KindStatus, schedule.KindClosing,
		schedule.KindReflection, schedule.KindDigest, schedule.KindFollowUp,
		schedule.KindAck,
	}
	for _, kind := range kinds {
		assert.NotEmpty(t, p.Text(kind), kind)
	}
}

package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ritmohq/ritmo-go/pkg/config"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
)

func testEntries() []config.RecipientConfig {
	return []config.RecipientConfig{
		{ID: "alice", Channel: "telegram", ChatID: "100", Enabled: true, LateNight: true, RandomCheckins: 3},
		{ID: "bob", Channel: "feishu", ChatID: "oc_200", Enabled: true},
		{ID: "carol", Channel: "dingtalk", ChatID: "300", Enabled: false},
	}
}

func newTestRoster(t *testing.T, entries []config.RecipientConfig) *Roster {
	t.Helper()
	return FromConfig(entries, schedule.MustTimeOfDay("07:30"), schedule.MustTimeOfDay("22:30"), zap.NewNop().Sugar())
}

func TestActiveRecipients_ConfigOrderEnabledOnly(t *testing.T) {
	r := newTestRoster(t, testEntries())

	recs := r.ActiveRecipients()
	require.Len(t, recs, 2)
	assert.Equal(t, "alice", recs[0].ID)
	assert.Equal(t, "bob", recs[1].ID)
}

func TestFromConfig_SkipsMalformedEntries(t *testing.T) {
	entries := append(testEntries(), config.RecipientConfig{ID: "dave", Enabled: true}) // no channel/chat id
	r := newTestRoster(t, entries)

	assert.False(t, r.IsEnabled("dave"))
	for _, rec := range r.ActiveRecipients() {
		assert.NotEqual(t, "dave", rec.ID)
	}
}

func TestSetEnabled_PauseAndResume(t *testing.T) {
	r := newTestRoster(t, testEntries())

	assert.True(t, r.SetEnabled("alice", false))
	assert.False(t, r.IsEnabled("alice"))
	assert.Len(t, r.ActiveRecipients(), 1)

	assert.True(t, r.SetEnabled("alice", true))
	assert.True(t, r.IsEnabled("alice"))

	assert.False(t, r.SetEnabled("nobody", true))
}

func TestResolve_MatchesChatIDOrRecipientID(t *testing.T) {
	r := newTestRoster(t, testEntries())

	rec, ok := r.Resolve("telegram", "100")
	require.True(t, ok)
	assert.Equal(t, "alice", rec.ID)

	rec, ok = r.Resolve("feishu", "bob")
	require.True(t, ok)
	assert.Equal(t, "oc_200", rec.ChatID)

	_, ok = r.Resolve("telegram", "999")
	assert.False(t, ok)
	_, ok = r.Resolve("feishu", "100") // right id, wrong channel
	assert.False(t, ok)
}

func TestPreferences(t *testing.T) {
	r := newTestRoster(t, testEntries())

	assert.True(t, r.LateNightEnabled("alice"))
	assert.False(t, r.LateNightEnabled("bob"))
	assert.Equal(t, 3, r.PreferredEventCount("alice"))
	assert.Equal(t, 0, r.PreferredEventCount("bob"))
	assert.Equal(t, 0, r.PreferredEventCount("nobody"))
}

func TestInQuietHours_GlobalBounds(t *testing.T) {
	r := newTestRoster(t, testEntries())
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.InQuietHours("bob", day.Add(6*time.Hour)))
	assert.False(t, r.InQuietHours("bob", day.Add(12*time.Hour)))
	assert.True(t, r.InQuietHours("bob", day.Add(23*time.Hour)))
}

func TestInQuietHours_WrapAroundOverride(t *testing.T) {
	entries := []config.RecipientConfig{
		{ID: "nightowl", Channel: "telegram", ChatID: "1", Enabled: true, QuietStart: "09:00", QuietEnd: "01:00"},
	}
	r := newTestRoster(t, entries)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Allowed span runs 09:00 through 01:00 the next day.
	assert.False(t, r.InQuietHours("nightowl", day.Add(30*time.Minute)))
	assert.True(t, r.InQuietHours("nightowl", day.Add(2*time.Hour)))
	assert.False(t, r.InQuietHours("nightowl", day.Add(12*time.Hour)))
	assert.False(t, r.InQuietHours("nightowl", day.Add(23*time.Hour)))
}

func TestInQuietHours_MalformedOverrideFallsBackToGlobal(t *testing.T) {
	entries := []config.RecipientConfig{
		{ID: "alice", Channel: "telegram", ChatID: "1", Enabled: true, QuietStart: "nope", QuietEnd: "01:00"},
	}
	r := newTestRoster(t, entries)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.InQuietHours("alice", day.Add(6*time.Hour)))
	assert.False(t, r.InQuietHours("alice", day.Add(12*time.Hour)))
}

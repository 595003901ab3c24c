package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
)

func testTable() WeekdayTable {
	return WeekdayTable{
		time.Monday: {
			{Name: KindStatus, At: MustTimeOfDay("13:30")},
			{Name: KindPlanning, At: MustTimeOfDay("08:00")},
		},
		time.Saturday: {
			{Name: KindDigest, At: MustTimeOfDay("11:00")},
		},
	}
}

func TestPlanDay_MaterializesWeekdayRowSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewMaterializer(testTable(), 0, MustTimeOfDay("07:30"), MustTimeOfDay("22:30"), rng, zap.NewNop().Sugar())

	monday := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	events := m.PlanDay(monday)
	require.Len(t, events, 2)
	assert.Equal(t, KindPlanning, events[0].Name)
	assert.Equal(t, KindStatus, events[1].Name)
	assert.True(t, events[0].At.Before(events[1].At))
	assert.Equal(t, time.Monday, events[0].Weekday)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), events[0].At)
}

func TestPlanDay_DropsEventsAlreadyPassed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewMaterializer(testTable(), 0, MustTimeOfDay("07:30"), MustTimeOfDay("22:30"), rng, zap.NewNop().Sugar())

	// Restart mid-day: only the afternoon event remains.
	midday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := m.PlanDay(midday)
	require.Len(t, events, 1)
	assert.Equal(t, KindStatus, events[0].Name)
}

func TestPlanDay_EmptyWeekday(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewMaterializer(testTable(), 0, MustTimeOfDay("07:30"), MustTimeOfDay("22:30"), rng, zap.NewNop().Sugar())

	sunday := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	assert.Empty(t, m.PlanDay(sunday))
}

func TestPlanDay_SkipsUnknownEventNames(t *testing.T) {
	table := WeekdayTable{
		time.Monday: {
			{Name: "metas", At: MustTimeOfDay("08:00")},
			{Name: KindStatus, At: MustTimeOfDay("13:30")},
		},
	}
	rng := rand.New(rand.NewSource(1))
	m := NewMaterializer(table, 0, MustTimeOfDay("07:30"), MustTimeOfDay("22:30"), rng, zap.NewNop().Sugar())

	monday := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	events := m.PlanDay(monday)
	require.Len(t, events, 1)
	assert.Equal(t, KindStatus, events[0].Name)
}

func TestPlanDay_ClampsIntoQuietHours(t *testing.T) {
	table := WeekdayTable{
		time.Monday: {
			{Name: KindPlanning, At: MustTimeOfDay("07:00")},
			{Name: KindClosing, At: MustTimeOfDay("23:00")},
		},
	}
	rng := rand.New(rand.NewSource(1))
	quietStart := MustTimeOfDay("07:30")
	quietEnd := MustTimeOfDay("22:30")
	m := NewMaterializer(table, 0, quietStart, quietEnd, rng, zap.NewNop().Sugar())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := m.PlanDay(monday)
	require.Len(t, events, 2)
	assert.Equal(t, quietStart.On(monday), events[0].At)
	assert.Equal(t, quietEnd.On(monday), events[1].At)
}

func TestPlanDay_JitterRespectsBoundAndQuietHours(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	quietStart := MustTimeOfDay("07:30")
	quietEnd := MustTimeOfDay("22:30")
	m := NewMaterializer(testTable(), 7, quietStart, quietEnd, rng, zap.NewNop().Sugar())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		for _, ev := range m.PlanDay(monday) {
			base := MustTimeOfDay("08:00")
			if ev.Name == KindStatus {
				base = MustTimeOfDay("13:30")
			}
			diff := ev.At.Sub(base.On(monday))
			assert.GreaterOrEqual(t, diff, -7*time.Minute)
			assert.LessOrEqual(t, diff, 7*time.Minute)
			assert.False(t, ev.At.Before(quietStart.On(monday)))
			assert.False(t, ev.At.After(quietEnd.On(monday)))
		}
	}
}

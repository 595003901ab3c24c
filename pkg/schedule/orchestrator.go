package schedule

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"go.uber.org/zap"
)

// OrchestratorConfig carries the scheduling knobs, already parsed.
type OrchestratorConfig struct {
	JitterMinutes  int
	QuietStart     TimeOfDay
	QuietEnd       TimeOfDay
	ResponseWindow time.Duration
	FollowUpDelay  time.Duration
	MinSpacing     time.Duration
	// RandomCheckins gates the randomized-window scheduler. Consulted once
	// at wiring time; weekends never use it regardless.
	RandomCheckins bool
	// RebuildSpec is the recurring re-materialization trigger, normally
	// a few minutes past midnight.
	RebuildSpec string
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Jobs     *Scheduler
	Tracker  *tracker.Tracker
	FollowUp *FollowUp
	Sender   Sender
	Roster   RosterProvider
	Prefs    PreferenceProvider
	Texts    TextProvider
	Table    WeekdayTable
	Windows  []TimeWindow
}

// FanOutReport summarizes one event's delivery across the roster.
type FanOutReport struct {
	Event   string
	Sent    int
	Failed  int
	Skipped int
}

// Orchestrator is the top-level daily driver: it materializes the day's
// plan into one-shot jobs on startup and again every day via the recurring
// rebuild job, and wires each fired job to send-record-arm.
type Orchestrator struct {
	cfg  OrchestratorConfig
	deps Deps

	// rngMu serializes materialization passes: the recurring rebuild job
	// runs on a worker goroutine and run-job can trigger another pass
	// concurrently, while rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand

	now func() time.Time
	log *zap.SugaredLogger
}

// NewOrchestrator wires the orchestrator. rng feeds jitter and window
// sampling; pass a seeded one in tests.
func NewOrchestrator(cfg OrchestratorConfig, deps Deps, rng *rand.Rand, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps, rng: rng, now: time.Now, log: log}
}

// Start registers the recurring rebuild and materializes immediately, so a
// restart mid-day keeps the remainder of the day (the materializer drops
// events already in the past).
func (o *Orchestrator) Start() error {
	if err := o.deps.Jobs.ScheduleRecurring("daily-rebuild", "materialize daily plan", o.cfg.RebuildSpec, o.MaterializeToday); err != nil {
		return fmt.Errorf("register daily rebuild: %w", err)
	}
	o.MaterializeToday()
	return nil
}

// MaterializeToday arms today's one-shot jobs. Job ids are deterministic
// per (event, date) and registration replaces on conflict, so re-running
// this for the same day never duplicates a job.
func (o *Orchestrator) MaterializeToday() {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()

	now := o.now()
	date := now.Format("2006-01-02")

	m := NewMaterializer(o.deps.Table, o.cfg.JitterMinutes, o.cfg.QuietStart, o.cfg.QuietEnd, o.rng, o.log)
	events := m.PlanDay(now)
	for _, ev := range events {
		o.deps.Jobs.ScheduleOnce(tableJobID(ev.Name, date), ev.Name+" check-in", ev.At, o.tableCallback(ev))
	}
	o.log.Infow("Daily plan materialized", "date", date, "weekday", now.Weekday().String(), "events", len(events))

	if o.cfg.RandomCheckins && isWeekday(now.Weekday()) {
		o.armRandomCheckins(now, date)
	}
}

// armRandomCheckins plans per-recipient randomized check-ins inside the
// window catalog. Sampled times are already inside their window, so they
// only get clamped, never re-jittered.
func (o *Orchestrator) armRandomCheckins(now time.Time, date string) {
	planner := NewRandomPlanner(o.deps.Windows, o.cfg.MinSpacing, o.rng)

	armed := 0
	for _, rec := range o.deps.Roster.ActiveRecipients() {
		if !o.deps.Prefs.IsEnabled(rec.ID) {
			continue
		}
		picks := planner.Pick(PickOptions{
			Count:        o.deps.Prefs.PreferredEventCount(rec.ID),
			OptInEnabled: o.deps.Prefs.LateNightEnabled(rec.ID),
		})
		for _, pick := range picks {
			at := ClampToQuietHours(pick.At.On(now), o.cfg.QuietStart, o.cfg.QuietEnd)
			if !at.After(now) {
				continue
			}
			id := randomJobID(pick.Window, rec.ID, date)
			o.deps.Jobs.ScheduleOnce(id, "random check-in", at, o.randomCallback(rec, pick.Window))
			armed++
		}
	}
	if armed > 0 {
		o.log.Infow("Random check-ins armed", "date", date, "count", armed)
	}
}

// tableCallback binds one materialized event to the reusable fan-out,
// rather than capturing a loop variable in a closure.
func (o *Orchestrator) tableCallback(ev ScheduledEvent) JobFunc {
	return func() {
		report := o.FireEvent(ev)
		o.log.Infow("Check-in fan-out complete",
			"event", report.Event,
			"sent", report.Sent,
			"failed", report.Failed,
			"skipped", report.Skipped)
	}
}

func (o *Orchestrator) randomCallback(rec Recipient, window string) JobFunc {
	return func() {
		if !o.deps.Prefs.IsEnabled(rec.ID) || o.deps.Prefs.InQuietHours(rec.ID, o.now()) {
			return
		}
		if err := o.sendPrompt(rec, window); err != nil {
			o.log.Errorw("Random check-in failed", "window", window, "recipient", rec.ID, "error", err)
		}
	}
}

// FireEvent fans one table event out to the whole roster. A failure for one
// recipient never blocks the rest; failures are aggregated into the report.
func (o *Orchestrator) FireEvent(ev ScheduledEvent) FanOutReport {
	report := FanOutReport{Event: ev.Name}
	for _, rec := range o.deps.Roster.ActiveRecipients() {
		if !o.deps.Prefs.IsEnabled(rec.ID) || o.deps.Prefs.InQuietHours(rec.ID, o.now()) {
			report.Skipped++
			continue
		}
		if err := o.sendPrompt(rec, ev.Name); err != nil {
			report.Failed++
			o.log.Errorw("Check-in send failed", "event", ev.Name, "recipient", rec.ID, "error", err)
			continue
		}
		report.Sent++
	}
	return report
}

// sendPrompt delivers one prompt and, only once the transport accepted it,
// records it for correlation and arms the follow-up.
func (o *Orchestrator) sendPrompt(rec Recipient, kind string) error {
	text := o.deps.Texts.Text(kind)
	msgID, err := o.deps.Sender.Send(rec, text)
	if err != nil {
		return fmt.Errorf("send %s check-in to %s: %w", kind, rec.ID, err)
	}

	p := o.deps.Tracker.Record(rec.ID, kind, text, o.cfg.ResponseWindow)
	o.deps.FollowUp.Arm(rec, p.ID)
	o.log.Infow("Check-in sent", "recipient", rec.ID, "kind", kind, "prompt_id", p.ID, "message_id", msgID)
	return nil
}

// RunJobNow triggers a registered job immediately. Operational hook.
func (o *Orchestrator) RunJobNow(jobID string) bool {
	return o.deps.Jobs.RunNow(jobID)
}

// ListJobs exposes the job table for diagnostics.
func (o *Orchestrator) ListJobs() []JobInfo {
	return o.deps.Jobs.ListJobs()
}

func tableJobID(event, date string) string {
	return fmt.Sprintf("checkin:%s:%s", event, date)
}

func randomJobID(window, recipientID, date string) string {
	return fmt.Sprintf("random:%s:%s:%s", window, recipientID, date)
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}

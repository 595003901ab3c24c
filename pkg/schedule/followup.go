package schedule

import (
	"time"

	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"go.uber.org/zap"
)

// FollowUp nudges a recipient once if a check-in is still unanswered after
// Delay. The nudge is self-cancelling: the armed job re-checks the tracker,
// and a prompt that was cleared or overwritten in the meantime simply makes
// the callback a no-op. No cancellation bookkeeping needed.
type FollowUp struct {
	Jobs    *Scheduler
	Tracker *tracker.Tracker
	Sender  Sender
	Texts   TextProvider
	Delay   time.Duration

	now func() time.Time
	log *zap.SugaredLogger
}

// NewFollowUp wires the follow-up scheduler.
func NewFollowUp(jobs *Scheduler, tr *tracker.Tracker, sender Sender, texts TextProvider, delay time.Duration, log *zap.SugaredLogger) *FollowUp {
	return &FollowUp{
		Jobs:    jobs,
		Tracker: tr,
		Sender:  sender,
		Texts:   texts,
		Delay:   delay,
		now:     time.Now,
		log:     log,
	}
}

// Arm registers the one-shot nudge check for a freshly sent prompt.
func (f *FollowUp) Arm(rec Recipient, promptID string) {
	fireAt := f.now().Add(f.Delay)
	f.Jobs.ScheduleOnce("followup:"+promptID, "follow-up nudge", fireAt, f.check(rec, promptID))
}

// check builds the callback bound to one recipient and prompt id.
func (f *FollowUp) check(rec Recipient, promptID string) JobFunc {
	return func() {
		p, ok := f.Tracker.Lookup(rec.ID)
		if !ok || p.ID != promptID {
			// Answered, expired, or superseded by a newer prompt.
			return
		}

		if _, err := f.Sender.Send(rec, f.Texts.Text(KindFollowUp)); err != nil {
			f.log.Warnw("Follow-up nudge failed", "recipient", rec.ID, "prompt_id", promptID, "error", err)
			return
		}
		f.log.Infow("Follow-up nudge sent", "recipient", rec.ID, "prompt_id", promptID, "kind", p.Kind)
	}
}

package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is a job callback. Callbacks run on their own goroutine so a
// blocking send never delays other due jobs.
type JobFunc func()

// JobInfo is the operational view of a registered job. NextRunAt is nil
// while the runtime has not assigned a fire time yet; callers must treat
// that as "pending", not as an error.
type JobInfo struct {
	ID        string
	Name      string
	NextRunAt *time.Time
}

type job struct {
	id      string
	name    string
	spec    cron.Schedule // nil for one-shot jobs
	nextRun time.Time     // zero until computed
	fn      JobFunc
}

// Scheduler is the in-process timer facility: one-shot and recurring jobs
// keyed by id, with replace-on-conflict semantics. A single wake loop owns
// the job table; callbacks are dispatched to worker goroutines.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	running bool

	stopChan chan struct{}
	wakeChan chan struct{}
	wg       sync.WaitGroup

	now func() time.Time
	log *zap.SugaredLogger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		jobs:     make(map[string]*job),
		stopChan: make(chan struct{}),
		wakeChan: make(chan struct{}, 1),
		now:      time.Now,
		log:      log,
	}
}

// Start launches the wake loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
	s.log.Infow("Job scheduler started")
}

// Stop halts the wake loop and waits for in-flight callbacks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.log.Infow("Job scheduler stopped")
}

// ScheduleOnce registers a one-shot job. Re-registering an id replaces the
// prior job, which is what makes re-running a day's materialization safe.
func (s *Scheduler) ScheduleOnce(id, name string, fireAt time.Time, fn JobFunc) {
	s.mu.Lock()
	_, replaced := s.jobs[id]
	s.jobs[id] = &job{id: id, name: name, nextRun: fireAt, fn: fn}
	s.mu.Unlock()

	if replaced {
		s.log.Debugw("Replaced scheduled job", "job_id", id, "fire_at", fireAt)
	}
	s.kick()
}

// ScheduleRecurring registers a recurring job from a 5-field cron
// expression, replacing any prior job with the same id.
func (s *Scheduler) ScheduleRecurring(id, name, expr string, fn JobFunc) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	spec, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("parse cron expr %q: %w", expr, err)
	}

	s.mu.Lock()
	s.jobs[id] = &job{id: id, name: name, spec: spec, fn: fn}
	s.mu.Unlock()

	s.kick()
	return nil
}

// Cancel removes a job. Cancelling an unknown id is not an error.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// RunNow fires a job immediately on a worker goroutine, outside its
// schedule. One-shot jobs are consumed; recurring jobs keep their schedule.
func (s *Scheduler) RunNow(id string) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok && j.spec == nil {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.wg.Add(1)
	go s.runJob(j)
	return true
}

// ListJobs returns a snapshot sorted by next fire time, jobs without one
// last.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		info := JobInfo{ID: j.id, Name: j.name}
		if !j.nextRun.IsZero() {
			next := j.nextRun
			info.NextRunAt = &next
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		a, b := infos[i].NextRunAt, infos[j].NextRunAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		if a.Equal(*b) {
			return infos[i].ID < infos[j].ID
		}
		return a.Before(*b)
	})
	return infos
}

// kick nudges the wake loop after the job table changed.
func (s *Scheduler) kick() {
	select {
	case s.wakeChan <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	for {
		delay := s.nextWake()
		// Cap the sleep so newly added jobs are picked up promptly even
		// if a kick was coalesced away.
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}

		select {
		case <-s.stopChan:
			return
		case <-s.wakeChan:
		case <-time.After(delay):
		}
		s.runDue()
	}
}

// nextWake computes the sleep until the earliest due job, assigning next
// run times to recurring jobs that lack one.
func (s *Scheduler) nextWake() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	min := 10 * time.Second
	for _, j := range s.jobs {
		if j.nextRun.IsZero() {
			if j.spec == nil {
				continue
			}
			j.nextRun = j.spec.Next(now)
		}
		until := j.nextRun.Sub(now)
		if until < min {
			min = until
		}
	}
	if min < 0 {
		min = 0
	}
	return min
}

func (s *Scheduler) runDue() {
	s.mu.Lock()
	now := s.now()
	var due []*job
	for id, j := range s.jobs {
		if j.nextRun.IsZero() {
			if j.spec != nil {
				j.nextRun = j.spec.Next(now)
			}
			continue
		}
		if j.nextRun.After(now) {
			continue
		}
		due = append(due, j)
		if j.spec != nil {
			j.nextRun = j.spec.Next(now)
		} else {
			delete(s.jobs, id) // one-shot: consumed by firing
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go s.runJob(j)
	}
}

// runJob executes one callback with panic isolation: a failing job must not
// take down the scheduler or block other jobs.
func (s *Scheduler) runJob(j *job) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Job callback panicked", "job_id", j.id, "name", j.name, "panic", r)
		}
	}()

	s.log.Debugw("Running job", "job_id", j.id, "name", j.name)
	j.fn()
}

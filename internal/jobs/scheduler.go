package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/ports"
)

// DefaultMaxConcurrentExecutions bounds the callbacks running at once.
const DefaultMaxConcurrentExecutions = 4

// ErrSchedulerStopped is returned by Register after Stop.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

var _ ports.JobScheduler = (*Scheduler)(nil)

// TimerRecorder is notified every time a timer reaches its occurrence.
type TimerRecorder interface {
	RecordTimerFired()
}

type SchedulerConfig struct {
	Calendar                ports.Calendar
	Clock                   ports.Clock
	MaxConcurrentExecutions int
	Metrics                 TimerRecorder
	Logger                  *slog.Logger
}

type timer struct {
	t        *time.Timer
	at       time.Time
	callback ports.JobCallback
}

// Scheduler keeps one one-shot timer per job id. A timer removes itself when
// it fires and hands its callback to a bounded pool; a saturated pool delays
// the callback but never the timers.
type Scheduler struct {
	calendar ports.Calendar
	clock    ports.Clock
	metrics  TimerRecorder
	logger   *slog.Logger

	slots chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	timers  map[int64]*timer
	stopped bool
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.MaxConcurrentExecutions <= 0 {
		cfg.MaxConcurrentExecutions = DefaultMaxConcurrentExecutions
	}

	return &Scheduler{
		calendar: cfg.Calendar,
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "scheduler"),
		slots:    make(chan struct{}, cfg.MaxConcurrentExecutions),
		quit:     make(chan struct{}),
		timers:   make(map[int64]*timer),
	}
}

// Register arms a timer for the next occurrence of spec after now and
// returns that occurrence. An existing timer for jobID is replaced.
func (s *Scheduler) Register(jobID int64, spec schedule.Spec, callback ports.JobCallback) (time.Time, error) {
	if callback == nil {
		return time.Time{}, fmt.Errorf("job %d: callback is required", jobID)
	}

	now := s.clock.Now()
	next, ok := s.calendar.Next(spec, now)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: job %d, %s", ports.ErrNoFutureOccurrence, jobID, spec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return time.Time{}, ErrSchedulerStopped
	}

	if old, exists := s.timers[jobID]; exists {
		old.t.Stop()
	}

	entry := &timer{at: next, callback: callback}
	entry.t = time.AfterFunc(next.Sub(now), func() { s.fire(jobID, entry) })
	s.timers[jobID] = entry

	s.logger.Debug("timer armed", "jobId", jobID, "schedule", spec.String(), "at", next)
	return next, nil
}

// Cancel disarms the timer of jobID. It is a no-op once the timer fired.
func (s *Scheduler) Cancel(jobID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.timers[jobID]
	if !exists {
		return false
	}
	entry.t.Stop()
	delete(s.timers, jobID)
	return true
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// NextFire returns when the timer of jobID is due.
func (s *Scheduler) NextFire(jobID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.timers[jobID]
	if !exists {
		return time.Time{}, false
	}
	return entry.at, true
}

// Stop disarms every timer, drops callbacks still waiting for a slot and waits
// for the running ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, entry := range s.timers {
		entry.t.Stop()
		delete(s.timers, id)
	}
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) fire(jobID int64, entry *timer) {
	s.mu.Lock()
	if s.stopped || s.timers[jobID] != entry {
		// replaced or cancelled after the timer had already fired
		s.mu.Unlock()
		return
	}
	delete(s.timers, jobID)
	s.wg.Add(1)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordTimerFired()
	}

	go s.dispatch(jobID, entry.callback)
}

func (s *Scheduler) dispatch(jobID int64, callback ports.JobCallback) {
	defer s.wg.Done()

	select {
	case s.slots <- struct{}{}:
	case <-s.quit:
		s.logger.Warn("callback dropped on shutdown", "jobId", jobID)
		return
	}
	defer func() { <-s.slots }()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job callback panicked", "jobId", jobID, "panic", r)
		}
	}()

	callback(context.Background(), jobID)
}

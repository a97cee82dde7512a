package jobs_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/ports"
	"billing/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// delayCalendar puts the next occurrence of every spec a fixed delay after t,
// except for specs on day 31 which never occur.
type delayCalendar struct {
	delay time.Duration
}

func (c delayCalendar) Next(spec schedule.Spec, t time.Time) (time.Time, bool) {
	if spec.DayOfMonth() == 31 {
		return time.Time{}, false
	}
	return t.Add(c.delay), true
}

func (c delayCalendar) Prev(_ schedule.Spec, t time.Time) (time.Time, bool) {
	return t.Add(-c.delay), true
}

func (delayCalendar) Location() *time.Location { return time.UTC }

type firedCounter struct{ n atomic.Int32 }

func (f *firedCounter) RecordTimerFired() { f.n.Add(1) }

func newScheduler(delay time.Duration, maxConcurrent int, metrics jobs.TimerRecorder) *jobs.Scheduler {
	return jobs.NewScheduler(jobs.SchedulerConfig{
		Calendar:                delayCalendar{delay: delay},
		Clock:                   wallClock{},
		MaxConcurrentExecutions: maxConcurrent,
		Metrics:                 metrics,
		Logger:                  discardLogger(),
	})
}

var spec = schedule.MustSpec(0, 10, 15)

func TestScheduler_RegisterFiresOnce(t *testing.T) {
	counter := &firedCounter{}
	s := newScheduler(20*time.Millisecond, 0, counter)
	t.Cleanup(s.Stop)

	calls := make(chan int64, 2)
	at, err := s.Register(7, spec, func(_ context.Context, id int64) { calls <- id })
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(20*time.Millisecond), at, 20*time.Millisecond)
	assert.Equal(t, 1, s.Pending())

	select {
	case id := <-calls:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), counter.n.Load())

	select {
	case <-calls:
		t.Fatal("timer fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_NoFutureOccurrence(t *testing.T) {
	s := newScheduler(time.Hour, 0, nil)
	t.Cleanup(s.Stop)

	_, err := s.Register(1, schedule.MustSpec(0, 10, 31), func(context.Context, int64) {})

	require.ErrorIs(t, err, ports.ErrNoFutureOccurrence)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_ReRegisterReplaces(t *testing.T) {
	s := newScheduler(30*time.Millisecond, 0, nil)
	t.Cleanup(s.Stop)

	var first, second atomic.Int32
	_, err := s.Register(1, spec, func(context.Context, int64) { first.Add(1) })
	require.NoError(t, err)
	_, err = s.Register(1, spec, func(context.Context, int64) { second.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestScheduler_Cancel(t *testing.T) {
	s := newScheduler(30*time.Millisecond, 0, nil)
	t.Cleanup(s.Stop)

	var fired atomic.Bool
	_, err := s.Register(1, spec, func(context.Context, int64) { fired.Store(true) })
	require.NoError(t, err)

	next, ok := s.NextFire(1)
	assert.True(t, ok)
	assert.False(t, next.IsZero())

	assert.True(t, s.Cancel(1))
	assert.False(t, s.Cancel(1), "second cancel is a no-op")
	assert.Equal(t, 0, s.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())

	_, ok = s.NextFire(1)
	assert.False(t, ok)
}

func TestScheduler_BoundedDispatch(t *testing.T) {
	s := newScheduler(10*time.Millisecond, 2, nil)

	var running, peak atomic.Int32
	release := make(chan struct{})
	var done sync.WaitGroup
	done.Add(5)

	for id := int64(1); id <= 5; id++ {
		_, err := s.Register(id, spec, func(context.Context, int64) {
			defer done.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		})
		require.NoError(t, err)
	}

	// all timers fire even though only two callbacks may run
	require.Eventually(t, func() bool { return s.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return running.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	close(release)
	done.Wait()
	s.Stop()

	assert.Equal(t, int32(2), peak.Load())
}

func TestScheduler_Stop(t *testing.T) {
	s := newScheduler(time.Hour, 0, nil)

	_, err := s.Register(1, spec, func(context.Context, int64) {})
	require.NoError(t, err)

	s.Stop()
	s.Stop()

	assert.Equal(t, 0, s.Pending())
	_, err = s.Register(2, spec, func(context.Context, int64) {})
	require.ErrorIs(t, err, jobs.ErrSchedulerStopped)
}

func TestScheduler_PanickingCallbackKeepsPool(t *testing.T) {
	s := newScheduler(10*time.Millisecond, 1, nil)
	t.Cleanup(s.Stop)

	_, err := s.Register(1, spec, func(context.Context, int64) { panic("boom") })
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = s.Register(2, spec, func(context.Context, int64) { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slot was not released after a panic")
	}
}

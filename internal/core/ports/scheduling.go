package ports

import (
	"context"
	"errors"
	"time"

	"billing/internal/core/domain/model/schedule"
)

// ErrNoFutureOccurrence is returned when a spec cannot fire after "now".
var ErrNoFutureOccurrence = errors.New("schedule has no future occurrence")

// Calendar evaluates schedule specs in the operating timezone.
type Calendar interface {
	// Next returns the soonest occurrence strictly after t.
	Next(spec schedule.Spec, t time.Time) (time.Time, bool)

	// Prev returns the latest occurrence strictly before t.
	Prev(spec schedule.Spec, t time.Time) (time.Time, bool)

	// Location is the operating timezone.
	Location() *time.Location
}

// Clock is the source of "now".
type Clock interface {
	Now() time.Time
}

// JobCallback runs when a registered job is due.
type JobCallback func(ctx context.Context, jobID int64)

// JobScheduler holds one-shot timers keyed by job id.
type JobScheduler interface {
	// Register arms a timer for the next occurrence of spec and returns it.
	// Registering an id twice replaces the previous timer.
	Register(jobID int64, spec schedule.Spec, callback JobCallback) (time.Time, error)

	// Cancel disarms the timer of jobID. It reports whether a timer was removed.
	Cancel(jobID int64) bool
}

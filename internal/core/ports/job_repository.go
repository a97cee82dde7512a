// Package ports defines the contracts between the billing core and its
// infrastructure: the job store, the external collaborators (user directory,
// secrets, invoicing, notification), the calendar and the timer scheduler.
package ports

import (
	"context"
	"errors"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
)

var (
	// ErrPersistence wraps every storage failure that is not a business outcome.
	ErrPersistence = errors.New("persistence error")

	// ErrJobNotClaimable is returned when a conditional transition finds the job
	// in a state it may not move from: another attempt owns it, it is already
	// terminal, or the claim was revoked.
	ErrJobNotClaimable = errors.New("job is not claimable")
)

// JobRepository is the persistence contract of the Job aggregate. Mutations
// are conditional updates so concurrent writers on the same job serialize in
// the database instead of racing in memory.
type JobRepository interface {
	// Add inserts a Pending job and assigns its id.
	Add(ctx context.Context, aggregate *job.Job) error

	// Get returns the job or an errs.ObjectNotFoundError.
	Get(ctx context.Context, id int64) (*job.Job, error)

	// FindAllPending returns every Pending job ordered by id.
	FindAllPending(ctx context.Context) ([]*job.Job, error)

	// FindInProgressClaimedBefore returns InProgress jobs whose claim is older than t.
	FindInProgressClaimedBefore(ctx context.Context, t time.Time) ([]*job.Job, error)

	// Claim atomically moves the job to InProgress under token if its current
	// status is one of job.ClaimableFrom(retry). Otherwise ErrJobNotClaimable.
	Claim(ctx context.Context, id int64, retry bool, token kernel.UUID, now time.Time) (*job.Job, error)

	// Finalize writes the terminal state of aggregate, provided the row is still
	// InProgress under token. Otherwise ErrJobNotClaimable.
	Finalize(ctx context.Context, aggregate *job.Job, token kernel.UUID) error

	// UpdateMany force-sets status on ids, skipping Completed and InProgress
	// rows, and returns the ids actually changed.
	UpdateMany(ctx context.Context, ids []int64, status job.Status, reason string, now time.Time) ([]int64, error)

	// DeleteByUser removes every job of userID and returns the removed ids.
	DeleteByUser(ctx context.Context, userID int64) ([]int64, error)
}

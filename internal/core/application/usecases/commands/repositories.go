// Package commands contains the billing operations that change job state:
// plan creation, execution, recovery and the administrative bulk actions.
// Every handler validates its command, works through a unit of work and
// keeps transactions short; no transaction is held across a network call.
package commands

import (
	"context"
	"time"

	"billing/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// JobRepoFactory provides access to the job repository within a transaction.
	JobRepoFactory interface {
		JobRepository() ports.JobRepository
	}

	// JobUoW manages transactions over job aggregates.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   repo := uow.JobRepository()
	//   // ... perform operations
	//
	//   err = uow.Commit(ctx)
	JobUoW interface {
		TxManager
		JobRepoFactory
	}

	// JobUoWFactory creates new job unit of work instances.
	JobUoWFactory interface {
		Create() JobUoW
	}
)

// systemClock is the production ports.Clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a ports.Clock reading the wall clock.
func SystemClock() ports.Clock {
	return systemClock{}
}

// inTx runs fn inside a fresh unit of work and commits when fn succeeds.
func inTx(ctx context.Context, factory JobUoWFactory, fn func(repo ports.JobRepository) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := fn(uow.JobRepository()); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

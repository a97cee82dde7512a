package commands

import (
	"errors"
	"time"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

var ErrReconcileJobsCommandIsNotConstructed = errors.New(
	"ReconcileJobsCommand must be created via NewReconcileJobsCommand constructor",
)

// ReconcileJobsCommand triggers one recovery pass. StartedAt is when the
// current process started. InProgress claims made before StartedAt, or older
// than the claim TTL, belong to an attempt that can no longer finish.
type ReconcileJobsCommand struct {
	startedAt time.Time

	guard guard.ConstructorGuard
}

func NewReconcileJobsCommand(startedAt time.Time) (ReconcileJobsCommand, error) {
	if startedAt.IsZero() {
		return ReconcileJobsCommand{}, errs.NewValueIsRequiredError("startedAt")
	}

	return ReconcileJobsCommand{
		startedAt: startedAt,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c ReconcileJobsCommand) Validate() error {
	return c.guard.Validate(ErrReconcileJobsCommandIsNotConstructed)
}

func (c ReconcileJobsCommand) StartedAt() time.Time {
	return c.startedAt
}

package commands

import (
	"errors"
	"fmt"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

var ErrRetryJobCommandIsNotConstructed = errors.New(
	"RetryJobCommand must be created via NewRetryJobCommand constructor",
)

// RetryJobCommand is an operator's request to run a Failed (or still Pending)
// job now.
type RetryJobCommand struct {
	jobID int64

	guard guard.ConstructorGuard
}

func NewRetryJobCommand(jobID int64) (RetryJobCommand, error) {
	if jobID <= 0 {
		return RetryJobCommand{}, errs.NewValueIsInvalidErrorWithCause("jobId",
			fmt.Errorf("%d is not greater than 0", jobID))
	}

	return RetryJobCommand{
		jobID: jobID,
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (c RetryJobCommand) Validate() error {
	return c.guard.Validate(ErrRetryJobCommandIsNotConstructed)
}

func (c RetryJobCommand) JobID() int64 {
	return c.jobID
}

package commands

import (
	"errors"
	"fmt"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

var ErrExecuteJobCommandIsNotConstructed = errors.New(
	"ExecuteJobCommand must be created via NewExecuteJobCommand constructor",
)

// ExecuteJobCommand asks for one execution attempt of a job. Retry allows the
// attempt to claim a Failed job as well as a Pending one.
//
// Example:
//
//	cmd, err := NewExecuteJobCommand(jobID, false)
//	if err != nil {
//	    return err
//	}
//	outcome, err := handler.Handle(ctx, cmd)
type ExecuteJobCommand struct { //nolint:recvcheck //using for validation
	jobID int64
	retry bool

	guard guard.ConstructorGuard
}

func NewExecuteJobCommand(jobID int64, retry bool) (ExecuteJobCommand, error) {
	cmd := ExecuteJobCommand{
		retry: retry,
		guard: guard.NewConstructorGuard(),
	}

	if err := cmd.setJobID(jobID); err != nil {
		return ExecuteJobCommand{}, err
	}

	return cmd, nil
}

func (c ExecuteJobCommand) Validate() error {
	return c.guard.Validate(ErrExecuteJobCommandIsNotConstructed)
}

func (c ExecuteJobCommand) JobID() int64 {
	return c.jobID
}

func (c ExecuteJobCommand) Retry() bool {
	return c.retry
}

func (c *ExecuteJobCommand) setJobID(jobID int64) error {
	if jobID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("jobId", fmt.Errorf("%d is not greater than 0", jobID))
	}
	c.jobID = jobID
	return nil
}

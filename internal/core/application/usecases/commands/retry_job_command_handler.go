package commands

import (
	"context"
)

// RetryJobCommandHandler runs an execution attempt that may claim a Failed job.
// A Pending job retried this way loses its timer: the attempt claims it and
// the timer's own attempt then finds it not claimable.
type RetryJobCommandHandler struct {
	executor JobExecutor
}

func NewRetryJobCommandHandler(executor JobExecutor) RetryJobCommandHandler {
	return RetryJobCommandHandler{executor: executor}
}

func (h RetryJobCommandHandler) Handle(ctx context.Context, cmd RetryJobCommand) (Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return Outcome{}, err
	}

	exec, err := NewExecuteJobCommand(cmd.JobID(), true)
	if err != nil {
		return Outcome{}, err
	}

	return h.executor.Handle(ctx, exec)
}

package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"billing/internal/core/application/usecases/commands"
	"billing/internal/core/ports"
)

const skippedLabel = "skipped"

// ExecutionRecorder receives the result of every timer-driven attempt.
type ExecutionRecorder interface {
	RecordExecution(status string, d time.Duration)
}

// ExecutionRunner is the callback armed for every job: it runs one attempt
// through the executor and records the outcome.
type ExecutionRunner struct {
	executor commands.JobExecutor
	metrics  ExecutionRecorder
	logger   *slog.Logger
}

func NewExecutionRunner(executor commands.JobExecutor, metrics ExecutionRecorder, logger *slog.Logger) *ExecutionRunner {
	return &ExecutionRunner{
		executor: executor,
		metrics:  metrics,
		logger:   logger.With("component", "execution_runner"),
	}
}

// Callback adapts Run to the scheduler's callback type.
func (r *ExecutionRunner) Callback() ports.JobCallback {
	return r.Run
}

// Run executes jobID once. Errors are logged: a timer has nobody to return them to.
func (r *ExecutionRunner) Run(ctx context.Context, jobID int64) {
	cmd, err := commands.NewExecuteJobCommand(jobID, false)
	if err != nil {
		r.logger.ErrorContext(ctx, "invalid job id from timer", "jobId", jobID, "error", err)
		return
	}

	outcome, err := r.executor.Handle(ctx, cmd)
	switch {
	case errors.Is(err, ports.ErrJobNotClaimable):
		r.logger.InfoContext(ctx, "job already taken, nothing to do", "jobId", jobID)
		r.record(skippedLabel, 0)
	case outcome.JobID == 0:
		r.logger.ErrorContext(ctx, "job execution did not start", "jobId", jobID, "error", err)
		r.record(skippedLabel, 0)
	default:
		// the executor already logged the attempt; err only repeats the failure reason
		r.record(outcome.Status.String(), outcome.Duration)
	}
}

func (r *ExecutionRunner) record(status string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordExecution(status, d)
	}
}

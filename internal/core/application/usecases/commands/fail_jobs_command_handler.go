package commands

import (
	"context"
	"log/slog"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/ports"
)

type FailJobsCommandHandler struct {
	uowFactory JobUoWFactory
	scheduler  ports.JobScheduler
	clock      ports.Clock
	logger     *slog.Logger
}

func NewFailJobsCommandHandler(
	uowFactory JobUoWFactory,
	scheduler ports.JobScheduler,
	clock ports.Clock,
	logger *slog.Logger,
) FailJobsCommandHandler {
	if clock == nil {
		clock = SystemClock()
	}
	return FailJobsCommandHandler{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		clock:      clock,
		logger:     logger.With("component", "admin"),
	}
}

// Handle fails the jobs and disarms their timers. It returns the ids that
// actually changed.
func (h FailJobsCommandHandler) Handle(ctx context.Context, cmd FailJobsCommand) ([]int64, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var affected []int64
	err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		var updateErr error
		affected, updateErr = repo.UpdateMany(ctx, cmd.IDs(), job.Failed, cmd.Reason(), h.clock.Now())
		return updateErr
	})
	if err != nil {
		return nil, err
	}

	for _, id := range affected {
		h.scheduler.Cancel(id)
	}

	h.logger.InfoContext(ctx, "jobs failed by operator",
		"requested", len(cmd.IDs()),
		"affected", len(affected),
		"reason", cmd.Reason())
	return affected, nil
}

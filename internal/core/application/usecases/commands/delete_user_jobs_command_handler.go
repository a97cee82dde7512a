package commands

import (
	"context"
	"log/slog"

	"billing/internal/core/ports"
)

type DeleteUserJobsCommandHandler struct {
	uowFactory JobUoWFactory
	scheduler  ports.JobScheduler
	logger     *slog.Logger
}

func NewDeleteUserJobsCommandHandler(
	uowFactory JobUoWFactory,
	scheduler ports.JobScheduler,
	logger *slog.Logger,
) DeleteUserJobsCommandHandler {
	return DeleteUserJobsCommandHandler{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		logger:     logger.With("component", "admin"),
	}
}

// Handle deletes the jobs and disarms their timers. It returns the deleted ids.
func (h DeleteUserJobsCommandHandler) Handle(ctx context.Context, cmd DeleteUserJobsCommand) ([]int64, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var deleted []int64
	err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		var deleteErr error
		deleted, deleteErr = repo.DeleteByUser(ctx, cmd.UserID())
		return deleteErr
	})
	if err != nil {
		return nil, err
	}

	for _, id := range deleted {
		h.scheduler.Cancel(id)
	}

	h.logger.InfoContext(ctx, "user jobs deleted", "userId", cmd.UserID(), "deleted", len(deleted))
	return deleted, nil
}

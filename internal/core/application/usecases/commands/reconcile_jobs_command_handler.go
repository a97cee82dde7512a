package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/ports"
	"billing/internal/pkg/errs"
)

const (
	// DefaultClaimTTL is how long an InProgress claim may stay open before it
	// is considered abandoned. It must exceed the invoicing timeout.
	DefaultClaimTTL = 5 * time.Minute

	// InterruptedReason is recorded on jobs whose attempt never finished.
	InterruptedReason = "interrupted: execution did not finish before restart"
)

// Classification is the reconciler's verdict for one Pending job.
type Classification int

const (
	// Stranded jobs have no occurrence the reconciler may act on. They stay
	// Pending and are reported.
	Stranded Classification = iota
	// Overdue jobs missed an occurrence after they were created.
	Overdue
	// Future jobs fire later in the current month.
	Future
)

func (c Classification) String() string {
	switch c {
	case Overdue:
		return "overdue"
	case Future:
		return "future"
	default:
		return "stranded"
	}
}

// ReconcileReport counts what one pass did.
type ReconcileReport struct {
	Interrupted int
	Overdue     int
	Completed   int
	Failed      int
	Scheduled   int
	Stranded    int
	Skipped     int
}

// JobExecutor runs one execution attempt. ExecuteJobCommandHandler implements it.
type JobExecutor interface {
	Handle(ctx context.Context, cmd ExecuteJobCommand) (Outcome, error)
}

// ReconcileJobsCommandHandler rebuilds the runtime scheduling state from the
// job store. It runs at startup and periodically; running it twice is safe
// because execution goes through the claim and registration replaces timers.
type ReconcileJobsCommandHandler struct {
	uowFactory JobUoWFactory
	calendar   ports.Calendar
	scheduler  ports.JobScheduler
	executor   JobExecutor
	callback   ports.JobCallback
	clock      ports.Clock
	claimTTL   time.Duration
	logger     *slog.Logger
}

type ReconcileJobsDeps struct {
	UoWFactory JobUoWFactory
	Calendar   ports.Calendar
	Scheduler  ports.JobScheduler
	Executor   JobExecutor
	Callback   ports.JobCallback
	Clock      ports.Clock
	ClaimTTL   time.Duration
	Logger     *slog.Logger
}

func NewReconcileJobsCommandHandler(deps ReconcileJobsDeps) ReconcileJobsCommandHandler {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.ClaimTTL <= 0 {
		deps.ClaimTTL = DefaultClaimTTL
	}

	return ReconcileJobsCommandHandler{
		uowFactory: deps.UoWFactory,
		calendar:   deps.Calendar,
		scheduler:  deps.Scheduler,
		executor:   deps.Executor,
		callback:   deps.Callback,
		clock:      deps.Clock,
		claimTTL:   deps.ClaimTTL,
		logger:     deps.Logger.With("component", "reconciler"),
	}
}

// Handle runs one pass. Failing to list jobs aborts the pass; a failure on a
// single job is logged and the pass moves on.
func (h ReconcileJobsCommandHandler) Handle(ctx context.Context, cmd ReconcileJobsCommand) (ReconcileReport, error) {
	if err := cmd.Validate(); err != nil {
		return ReconcileReport{}, err
	}

	var report ReconcileReport

	if err := h.failInterrupted(ctx, h.claimCutoff(cmd.StartedAt()), &report); err != nil {
		return report, err
	}

	var pending []*job.Job
	err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		var findErr error
		pending, findErr = repo.FindAllPending(ctx)
		return findErr
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "list pending jobs", "error", err)
		return report, err
	}

	for _, j := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		h.reconcileOne(ctx, j, &report)
	}

	h.logger.InfoContext(ctx, "reconciliation finished",
		"pending", len(pending),
		"interrupted", report.Interrupted,
		"overdue", report.Overdue,
		"completed", report.Completed,
		"failed", report.Failed,
		"scheduled", report.Scheduled,
		"stranded", report.Stranded,
		"skipped", report.Skipped)
	return report, nil
}

// ValidateClaimTTL rejects a claim TTL that a live attempt could outlast.
func ValidateClaimTTL(claimTTL, invoicingTimeout time.Duration) error {
	if claimTTL <= invoicingTimeout {
		return errs.NewValueIsInvalidErrorWithCause("claimTTL",
			fmt.Errorf("%s must exceed the invoicing timeout %s", claimTTL, invoicingTimeout))
	}
	return nil
}

// claimCutoff is the latest claim time treated as abandoned. Every claim made
// before the process started is dead. Claims made since then are abandoned
// once they outlive the TTL.
func (h ReconcileJobsCommandHandler) claimCutoff(startedAt time.Time) time.Time {
	expired := h.clock.Now().Add(-h.claimTTL)
	if expired.After(startedAt) {
		return expired
	}
	return startedAt
}

// Classify decides what to do with a Pending job at now.
//
// A job is Overdue when its latest occurrence before now is after its
// creation: it was due while nothing was running. It is Future when its next
// occurrence falls in the current calendar month of the operating timezone.
func Classify(cal ports.Calendar, j *job.Job, now time.Time) (Classification, time.Time) {
	if prev, ok := cal.Prev(j.Spec(), now); ok && prev.After(j.CreatedAt()) && prev.Before(now) {
		return Overdue, prev
	}

	next, ok := cal.Next(j.Spec(), now)
	if ok && next.After(now) && sameMonth(next, now, cal.Location()) {
		return Future, next
	}

	return Stranded, next
}

func sameMonth(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (h ReconcileJobsCommandHandler) reconcileOne(ctx context.Context, j *job.Job, report *ReconcileReport) {
	now := h.clock.Now()
	kind, at := Classify(h.calendar, j, now)
	logger := h.logger.With("jobId", j.ID(), "schedule", j.Spec().String(), "class", kind.String())

	switch kind {
	case Overdue:
		report.Overdue++
		cmd, err := NewExecuteJobCommand(j.ID(), false)
		if err != nil {
			report.Skipped++
			logger.ErrorContext(ctx, "build execute command", "error", err)
			return
		}

		outcome, err := h.executor.Handle(ctx, cmd)
		switch {
		case outcome.Succeeded():
			report.Completed++
		case outcome.Status == job.Failed:
			report.Failed++
		default:
			report.Skipped++
			logger.WarnContext(ctx, "overdue job not executed", "missedAt", at, "error", err)
		}

	case Future:
		if _, err := h.scheduler.Register(j.ID(), j.Spec(), h.callback); err != nil {
			report.Skipped++
			logger.ErrorContext(ctx, "register timer", "error", err)
			return
		}
		report.Scheduled++

	default:
		report.Stranded++
		logger.WarnContext(ctx, "job has no actionable occurrence and stays pending", "next", at)
	}
}

func (h ReconcileJobsCommandHandler) failInterrupted(
	ctx context.Context,
	claimedBefore time.Time,
	report *ReconcileReport,
) error {
	var stale []*job.Job
	err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		var findErr error
		stale, findErr = repo.FindInProgressClaimedBefore(ctx, claimedBefore)
		return findErr
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "list interrupted jobs", "error", err)
		return err
	}

	for _, j := range stale {
		token := j.ClaimToken()
		if token == nil || j.ClaimedAt() == nil {
			continue
		}
		owner := *token

		if err := j.Fail(owner, InterruptedReason, h.clock.Now()); err != nil {
			report.Skipped++
			h.logger.ErrorContext(ctx, "fail interrupted job", "jobId", j.ID(), "error", err)
			continue
		}

		err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
			return repo.Finalize(ctx, j, owner)
		})
		switch {
		case errors.Is(err, ports.ErrJobNotClaimable):
			// the attempt finished after all
			continue
		case err != nil:
			report.Skipped++
			h.logger.ErrorContext(ctx, "finalize interrupted job", "jobId", j.ID(), "error", err)
			continue
		}

		report.Interrupted++
		h.logger.WarnContext(ctx, "job marked interrupted", "jobId", j.ID(), "claimedAt", *j.ClaimedAt())
	}

	return nil
}

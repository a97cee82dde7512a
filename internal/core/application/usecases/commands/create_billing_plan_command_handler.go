package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/domain/services"
	"billing/internal/core/ports"
)

var (
	DefaultMinPart = kernel.MustMoney("35000")
	DefaultMaxPart = kernel.MustMoney("135000")
)

// PlannedJob is one persisted job of a new plan.
type PlannedJob struct {
	JobID  int64
	Amount kernel.Money
	Spec   schedule.Spec
	DueAt  time.Time
}

type BillingPlanResult struct {
	UserID int64
	Total  kernel.Money
	Jobs   []PlannedJob
}

// CreateBillingPlanCommandHandler turns a plan request into Pending jobs.
//
// Nothing is written unless the whole plan is valid: amounts, schedules and a
// future occurrence for every schedule are checked before the transaction
// starts, and all jobs are inserted in one transaction. Timers are armed and
// operators notified only after commit; a failure there is logged and left to
// the reconciler.
type CreateBillingPlanCommandHandler struct {
	uowFactory JobUoWFactory
	users      ports.UserDirectory
	planner    services.Planner
	calendar   ports.Calendar
	scheduler  ports.JobScheduler
	callback   ports.JobCallback
	notifier   ports.PlanNotifier
	clock      ports.Clock
	minPart    kernel.Money
	maxPart    kernel.Money
	logger     *slog.Logger
}

type CreateBillingPlanDeps struct {
	UoWFactory JobUoWFactory
	Users      ports.UserDirectory
	Planner    services.Planner
	Calendar   ports.Calendar
	Scheduler  ports.JobScheduler
	Callback   ports.JobCallback
	Notifier   ports.PlanNotifier
	Clock      ports.Clock
	MinPart    kernel.Money
	MaxPart    kernel.Money
	Logger     *slog.Logger
}

func NewCreateBillingPlanCommandHandler(deps CreateBillingPlanDeps) CreateBillingPlanCommandHandler {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if !deps.MinPart.IsPositive() {
		deps.MinPart = DefaultMinPart
	}
	if !deps.MaxPart.IsPositive() {
		deps.MaxPart = DefaultMaxPart
	}

	return CreateBillingPlanCommandHandler{
		uowFactory: deps.UoWFactory,
		users:      deps.Users,
		planner:    deps.Planner,
		calendar:   deps.Calendar,
		scheduler:  deps.Scheduler,
		callback:   deps.Callback,
		notifier:   deps.Notifier,
		clock:      deps.Clock,
		minPart:    deps.MinPart,
		maxPart:    deps.MaxPart,
		logger:     deps.Logger.With("component", "plan-creator"),
	}
}

func (h CreateBillingPlanCommandHandler) Handle(
	ctx context.Context,
	cmd CreateBillingPlanCommand,
) (BillingPlanResult, error) {
	if err := cmd.Validate(); err != nil {
		return BillingPlanResult{}, err
	}

	user, err := h.users.GetUserByID(ctx, cmd.UserID())
	if err != nil {
		return BillingPlanResult{}, err
	}

	now := h.clock.Now().In(h.calendar.Location())
	startDay, endDay := cmd.Window(now)

	plan, err := h.planner.Plan(services.PlanRequest{
		MinTotal:  cmd.MinTotal(),
		MaxTotal:  cmd.MaxTotal(),
		Count:     cmd.InvoiceCount(),
		MinPart:   h.minPart,
		MaxPart:   h.maxPart,
		StartHour: cmd.StartHour(),
		EndHour:   cmd.EndHour(),
		StartDay:  startDay,
		EndDay:    endDay,
	})
	if err != nil {
		return BillingPlanResult{}, err
	}

	jobs := make([]*job.Job, 0, len(plan.Items))
	for _, item := range plan.Items {
		if _, ok := h.calendar.Next(item.Spec, now); !ok {
			return BillingPlanResult{}, fmt.Errorf("%w: %s", ports.ErrNoFutureOccurrence, item.Spec)
		}

		j, jobErr := job.NewJob(user.ID, user.SalePoint, item.Amount, item.Spec, user.External, now)
		if jobErr != nil {
			return BillingPlanResult{}, jobErr
		}
		jobs = append(jobs, j)
	}

	err = inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		for _, j := range jobs {
			if addErr := repo.Add(ctx, j); addErr != nil {
				return addErr
			}
		}
		return nil
	})
	if err != nil {
		return BillingPlanResult{}, err
	}

	result := BillingPlanResult{
		UserID: user.ID,
		Total:  plan.Total,
		Jobs:   make([]PlannedJob, 0, len(jobs)),
	}
	for _, j := range jobs {
		planned := PlannedJob{JobID: j.ID(), Amount: j.ValueToBill(), Spec: j.Spec()}

		dueAt, regErr := h.scheduler.Register(j.ID(), j.Spec(), h.callback)
		if regErr != nil {
			h.logger.ErrorContext(ctx, "register timer", "jobId", j.ID(), "error", regErr)
		} else {
			planned.DueAt = dueAt
		}
		result.Jobs = append(result.Jobs, planned)
	}

	h.logger.InfoContext(ctx, "billing plan created",
		"userId", user.ID,
		"total", plan.Total.String(),
		"invoices", len(result.Jobs),
		"startDay", startDay,
		"endDay", endDay)

	h.notify(ctx, user, result)
	return result, nil
}

func (h CreateBillingPlanCommandHandler) notify(ctx context.Context, user ports.User, result BillingPlanResult) {
	if h.notifier == nil {
		return
	}

	entries := make([]ports.PlanEntry, 0, len(result.Jobs))
	for _, pj := range result.Jobs {
		entries = append(entries, ports.PlanEntry{JobID: pj.JobID, Amount: pj.Amount, DueAt: pj.DueAt})
	}

	err := h.notifier.NotifyPlanCreated(ctx, ports.PlanSummary{
		UserID:  user.ID,
		TaxID:   user.TaxID,
		Total:   result.Total,
		Entries: entries,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "plan notification failed", "userId", user.ID, "error", err)
	}
}

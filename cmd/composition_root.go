package cmd

import (
	"fmt"
	"log/slog"
	"time"

	httpadapter "billing/internal/adapters/in/http"
	"billing/internal/adapters/out/afip"
	"billing/internal/adapters/out/cronexpr"
	"billing/internal/adapters/out/notify"
	"billing/internal/adapters/out/postgres"
	"billing/internal/adapters/out/postgres/userrepo"
	"billing/internal/adapters/out/vault"
	"billing/internal/core/application/usecases/commands"
	"billing/internal/core/application/usecases/queries"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/services"
	"billing/internal/core/ports"
	"billing/internal/jobs"
	"billing/internal/metrics"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// CompositionRoot owns the process-wide singletons: the connection pool, the
// scheduler, the execution runner and the metrics registry. Handlers are built
// on demand around them.
type CompositionRoot struct {
	cfg        Config
	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory
	calendar   *cronexpr.Calendar
	clock      ports.Clock
	planner    services.Planner
	minPart    kernel.Money
	maxPart    kernel.Money
	startedAt  time.Time
	secrets    ports.SecretsClient
	logger     *slog.Logger

	metrics   *metrics.Collector
	scheduler *jobs.Scheduler
	runner    *jobs.ExecutionRunner
}

// NewCompositionRoot wires the long-lived components. gormDB may be nil for
// commands that never touch the job store, such as preview.
func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	calendar, err := cronexpr.NewCalendar(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	minPart, err := moneyOrZero("MIN_PART", cfg.MinPart)
	if err != nil {
		return nil, err
	}
	maxPart, err := moneyOrZero("MAX_PART", cfg.MaxPart)
	if err != nil {
		return nil, err
	}
	if err := commands.ValidateClaimTTL(cfg.claimTTL(), cfg.invoicingTimeout()); err != nil {
		return nil, fmt.Errorf("CLAIM_TTL: %w", err)
	}
	secrets, err := vault.NewClient(cfg.VaultAddress, cfg.VaultToken)
	if err != nil {
		return nil, err
	}

	c := &CompositionRoot{
		cfg:        cfg,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		calendar:   calendar,
		clock:      commands.SystemClock(),
		planner:    services.NewPlanner(services.NewRandomSource()),
		minPart:    minPart,
		maxPart:    maxPart,
		startedAt:  time.Now(),
		secrets:    secrets,
		logger:     logger,
		metrics:    metrics.NewCollector(),
	}

	c.scheduler = jobs.NewScheduler(jobs.SchedulerConfig{
		Calendar:                c.calendar,
		Clock:                   c.clock,
		MaxConcurrentExecutions: cfg.MaxConcurrentExecutions,
		Metrics:                 c.metrics,
		Logger:                  logger,
	})
	c.metrics.WatchPendingTimers(c.scheduler.Pending)
	c.runner = jobs.NewExecutionRunner(c.CreateExecuteJobCommandHandler(), c.metrics, logger)

	return c, nil
}

func (c *CompositionRoot) Location() *time.Location {
	return c.calendar.Location()
}

func (c *CompositionRoot) Metrics() *metrics.Collector {
	return c.metrics
}

func (c *CompositionRoot) jobUoWFactory() commands.JobUoWFactory {
	return FuncJobUoWFactory(func() commands.JobUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) users() ports.UserDirectory {
	return userrepo.NewGormUserDirectory(c.gormDB)
}

func (c *CompositionRoot) notifier() ports.PlanNotifier {
	if c.cfg.BrevoAPIKey == "" || len(c.cfg.NotifyTo) == 0 {
		return notify.NewLogNotifier(c.logger)
	}
	return notify.NewBrevoNotifier(notify.BrevoConfig{
		APIKey: c.cfg.BrevoAPIKey,
		From:   c.cfg.NotifyFrom,
		To:     c.cfg.NotifyTo,
	}, c.calendar.Location())
}

func (c *CompositionRoot) CreateExecuteJobCommandHandler() commands.ExecuteJobCommandHandler {
	return commands.NewExecuteJobCommandHandler(commands.ExecuteJobDeps{
		UoWFactory: c.jobUoWFactory(),
		Secrets:    c.secrets,
		Users:      c.users(),
		Invoicing: afip.NewClient(afip.Config{
			BaseURL:       c.cfg.InvoicingAPIURL,
			Timeout:       c.cfg.InvoicingTimeout,
			RatePerMinute: c.cfg.InvoicingRatePerMinute,
			Location:      c.calendar.Location(),
		}, c.logger),
		Clock:    c.clock,
		Location: c.calendar.Location(),
		Timeout:  c.cfg.InvoicingTimeout,
		Logger:   c.logger,
	})
}

func (c *CompositionRoot) CreateCreateBillingPlanCommandHandler() commands.CreateBillingPlanCommandHandler {
	return commands.NewCreateBillingPlanCommandHandler(commands.CreateBillingPlanDeps{
		UoWFactory: c.jobUoWFactory(),
		Users:      c.users(),
		Planner:    c.planner,
		Calendar:   c.calendar,
		Scheduler:  c.scheduler,
		Callback:   c.runner.Callback(),
		Notifier:   c.notifier(),
		Clock:      c.clock,
		MinPart:    c.minPart,
		MaxPart:    c.maxPart,
		Logger:     c.logger,
	})
}

func (c *CompositionRoot) CreateReconcileJobsCommandHandler() commands.ReconcileJobsCommandHandler {
	return commands.NewReconcileJobsCommandHandler(commands.ReconcileJobsDeps{
		UoWFactory: c.jobUoWFactory(),
		Calendar:   c.calendar,
		Scheduler:  c.scheduler,
		Executor:   c.CreateExecuteJobCommandHandler(),
		Callback:   c.runner.Callback(),
		Clock:      c.clock,
		ClaimTTL:   c.cfg.claimTTL(),
		Logger:     c.logger,
	})
}

func (c *CompositionRoot) CreateFailJobsCommandHandler() commands.FailJobsCommandHandler {
	return commands.NewFailJobsCommandHandler(c.jobUoWFactory(), c.scheduler, c.clock, c.logger)
}

func (c *CompositionRoot) CreateDeleteUserJobsCommandHandler() commands.DeleteUserJobsCommandHandler {
	return commands.NewDeleteUserJobsCommandHandler(c.jobUoWFactory(), c.scheduler, c.logger)
}

func (c *CompositionRoot) CreateRetryJobCommandHandler() commands.RetryJobCommandHandler {
	return commands.NewRetryJobCommandHandler(c.CreateExecuteJobCommandHandler())
}

func (c *CompositionRoot) CreateGetJobsQueryHandler() queries.GetJobsQueryHandler {
	return queries.NewGetJobsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreatePreviewPlanQueryHandler() queries.PreviewPlanQueryHandler {
	return queries.NewPreviewPlanQueryHandler(c.planner, c.calendar, c.clock, c.minPart, c.maxPart)
}

func (c *CompositionRoot) CreateReconciliationJob() *jobs.ReconciliationJob {
	return jobs.NewReconciliationJob(
		c.CreateReconcileJobsCommandHandler(),
		c.cfg.ReconcileSpec,
		c.startedAt,
		c.calendar.Location(),
		c.metrics,
		c.logger,
	)
}

// CreateStandaloneReconciliationJob builds a reconciliation job for a process
// that runs beside a serving one. It treats itself as started one claim TTL
// ago so claims held by the serving process are only failed once expired.
func (c *CompositionRoot) CreateStandaloneReconciliationJob() *jobs.ReconciliationJob {
	return jobs.NewReconciliationJob(
		c.CreateReconcileJobsCommandHandler(),
		c.cfg.ReconcileSpec,
		c.startedAt.Add(-c.cfg.claimTTL()),
		c.calendar.Location(),
		c.metrics,
		c.logger,
	)
}

func (c *CompositionRoot) CreateJobManager(reconciliation *jobs.ReconciliationJob) *jobs.JobManager {
	return jobs.NewJobManager(c.scheduler, reconciliation)
}

func (c *CompositionRoot) CreateEcho() (*echo.Echo, error) {
	server := httpadapter.NewServer(httpadapter.ServerDeps{
		CreatePlan:  c.CreateCreateBillingPlanCommandHandler(),
		PreviewPlan: c.CreatePreviewPlanQueryHandler(),
		GetJobs:     c.CreateGetJobsQueryHandler(),
		FailJobs:    c.CreateFailJobsCommandHandler(),
		DeleteUser:  c.CreateDeleteUserJobsCommandHandler(),
		RetryJob:    c.CreateRetryJobCommandHandler(),
		Location:    c.calendar.Location(),
		Clock:       c.clock.Now,
		Metrics:     c.metrics,
	})
	return httpadapter.NewEcho(server, c.metrics.Handler(), c.logger)
}

func moneyOrZero(key, value string) (kernel.Money, error) {
	if value == "" {
		return kernel.Money{}, nil
	}
	m, err := kernel.MoneyFromString(value)
	if err != nil {
		return kernel.Money{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

type FuncJobUoWFactory func() commands.JobUoW

func (f FuncJobUoWFactory) Create() commands.JobUoW {
	return f()
}

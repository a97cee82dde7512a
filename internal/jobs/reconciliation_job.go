package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"billing/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// DefaultReconcileSpec runs a reconciliation pass every hour.
const DefaultReconcileSpec = "@hourly"

type Reconciler interface {
	Handle(ctx context.Context, cmd commands.ReconcileJobsCommand) (commands.ReconcileReport, error)
}

type ReconciliationRecorder interface {
	RecordReconciliation(d time.Duration, counts map[string]int)
}

// ReconciliationJob runs the reconciler once at startup and then on a cron
// schedule in the operating timezone. Periodic passes pick up jobs whose
// timer could not be armed earlier, such as jobs due next month.
type ReconciliationJob struct {
	reconciler Reconciler
	spec       string
	startedAt  time.Time
	metrics    ReconciliationRecorder
	cron       *cron.Cron
	logger     *slog.Logger

	mu sync.Mutex
}

func NewReconciliationJob(
	reconciler Reconciler,
	spec string,
	startedAt time.Time,
	loc *time.Location,
	metrics ReconciliationRecorder,
	logger *slog.Logger,
) *ReconciliationJob {
	if spec == "" {
		spec = DefaultReconcileSpec
	}
	logger = logger.With("component", "reconciliation_job")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	return &ReconciliationJob{
		reconciler: reconciler,
		spec:       spec,
		startedAt:  startedAt,
		metrics:    metrics,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
}

// RunOnce performs a single pass. Passes never overlap.
func (j *ReconciliationJob) RunOnce(ctx context.Context) (commands.ReconcileReport, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cmd, err := commands.NewReconcileJobsCommand(j.startedAt)
	if err != nil {
		return commands.ReconcileReport{}, err
	}

	started := time.Now()
	report, err := j.reconciler.Handle(ctx, cmd)
	if j.metrics != nil {
		j.metrics.RecordReconciliation(time.Since(started), reportCounts(report))
	}
	return report, err
}

// Start schedules the periodic passes.
func (j *ReconciliationJob) Start() error {
	_, err := j.cron.AddFunc(j.spec, func() {
		ctx := context.Background()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Reconciliation pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule %q: %w", j.spec, err)
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Reconciliation job started", "schedule", j.spec)
	return nil
}

// Stop stops the schedule and waits for a running pass.
func (j *ReconciliationJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Reconciliation job stopped")
}

func reportCounts(r commands.ReconcileReport) map[string]int {
	return map[string]int{
		"interrupted":              r.Interrupted,
		commands.Overdue.String():  r.Overdue,
		commands.Future.String():   r.Scheduled,
		commands.Stranded.String(): r.Stranded,
		skippedLabel:               r.Skipped,
	}
}

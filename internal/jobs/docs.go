// Package jobs provides the background machinery of the billing scheduler.
//
// # Components
//
// 1. Scheduler - one one-shot timer per Pending job, armed for the next
// occurrence of the job's schedule in the operating timezone. Fired timers
// hand their callback to a bounded pool (MaxConcurrentExecutions).
// 2. ExecutionRunner - the callback armed for every job; runs one execution
// attempt and records its outcome.
// 3. ReconciliationJob - runs the reconciler at startup and on a
// github.com/robfig/cron/v3 schedule (hourly by default).
//
// # Usage
//
//	scheduler := jobs.NewScheduler(jobs.SchedulerConfig{Calendar: cal, Clock: clock, Logger: logger})
//	runner := jobs.NewExecutionRunner(executor, collector, logger)
//	reconciliation := jobs.NewReconciliationJob(reconciler, "@hourly", startedAt, loc, collector, logger)
//
//	if _, err := reconciliation.RunOnce(ctx); err != nil {
//		log.Fatal("startup reconciliation failed:", err)
//	}
//
//	jobManager := jobs.NewJobManager(scheduler, reconciliation)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Timers have no caller to report to: execution errors are logged and
// counted. A job whose claim is lost to another attempt is counted as skipped.
package jobs

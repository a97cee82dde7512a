package jobs

import (
	"fmt"
)

// JobManager coordinates the background machinery of the service: the
// one-shot timer scheduler and the periodic reconciliation.
type JobManager struct {
	scheduler      *Scheduler
	reconciliation *ReconciliationJob
}

func NewJobManager(scheduler *Scheduler, reconciliation *ReconciliationJob) *JobManager {
	return &JobManager{
		scheduler:      scheduler,
		reconciliation: reconciliation,
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.reconciliation.Start(); err != nil {
		return fmt.Errorf("failed to start reconciliation job: %w", err)
	}
	return nil
}

// StopAll stops the periodic passes first so none re-arms timers, then the
// scheduler.
func (jm *JobManager) StopAll() {
	jm.reconciliation.Stop()
	jm.scheduler.Stop()
}

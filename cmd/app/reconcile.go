package main

import (
	"fmt"

	"billing/cmd"

	"github.com/spf13/cobra"
)

func newReconcileCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass and exit",
		Long: `reconcile fails expired claims and executes overdue jobs, then exits.
Timers armed for future jobs are discarded on exit; the serving process arms
them on its own passes.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig(*envFile)
			if err != nil {
				return err
			}
			logger := newLogger()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}

			app, err := cmd.NewCompositionRoot(cfg, db, logger)
			if err != nil {
				return err
			}

			reconciliation := app.CreateStandaloneReconciliationJob()
			manager := app.CreateJobManager(reconciliation)
			defer manager.StopAll()

			report, err := reconciliation.RunOnce(c.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.OutOrStdout(),
				"interrupted=%d overdue=%d completed=%d failed=%d scheduled=%d stranded=%d skipped=%d\n",
				report.Interrupted, report.Overdue, report.Completed, report.Failed,
				report.Scheduled, report.Stranded, report.Skipped)
			return err
		},
	}
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"billing/cmd"
	"billing/internal/core/application/usecases/queries"
	"billing/internal/core/domain/model/kernel"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

type previewFlags struct {
	count     int
	minTotal  string
	maxTotal  string
	startDate string
	endDate   string
	startHour int
	endHour   int
}

func newPreviewCommand(envFile *string) *cobra.Command {
	var f previewFlags

	c := &cobra.Command{
		Use:   "preview",
		Short: "Draw a billing plan and print it without saving",
		Example: `  billing preview --count 5 --min-total 300000 --max-total 350000
  billing preview --count 3 --min-total 150000 --start 2026-10-20 --end 2026-10-27`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig(*envFile)
			if err != nil {
				return err
			}

			app, err := cmd.NewCompositionRoot(cfg, nil, newLogger())
			if err != nil {
				return err
			}

			params, err := f.params(c, app.Location())
			if err != nil {
				return err
			}
			query, err := queries.NewPreviewPlanQuery(params)
			if err != nil {
				return err
			}

			resp, err := app.CreatePreviewPlanQueryHandler().Handle(c.Context(), query)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tAMOUNT\tSPEC\tWHEN")
			for i, item := range resp.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, item.Amount, item.Spec, item.When)
			}
			fmt.Fprintf(w, "\tTOTAL %s\t\t\n", resp.Total)
			return w.Flush()
		},
	}

	c.Flags().IntVar(&f.count, "count", 0, "number of invoices")
	c.Flags().StringVar(&f.minTotal, "min-total", "", "lower bound of the plan total")
	c.Flags().StringVar(&f.maxTotal, "max-total", "", "upper bound of the plan total (defaults to min-total)")
	c.Flags().StringVar(&f.startDate, "start", "", "first billing day, YYYY-MM-DD (defaults to tomorrow)")
	c.Flags().StringVar(&f.endDate, "end", "", "last billing day, YYYY-MM-DD (defaults to three days before month end)")
	c.Flags().IntVar(&f.startHour, "start-hour", 0, "earliest billing hour")
	c.Flags().IntVar(&f.endHour, "end-hour", 0, "latest billing hour")
	_ = c.MarkFlagRequired("count")
	_ = c.MarkFlagRequired("min-total")

	return c
}

func (f previewFlags) params(c *cobra.Command, loc *time.Location) (queries.PreviewPlanParams, error) {
	minTotal, err := kernel.MoneyFromString(f.minTotal)
	if err != nil {
		return queries.PreviewPlanParams{}, fmt.Errorf("--min-total: %w", err)
	}
	maxTotal := minTotal
	if f.maxTotal != "" {
		if maxTotal, err = kernel.MoneyFromString(f.maxTotal); err != nil {
			return queries.PreviewPlanParams{}, fmt.Errorf("--max-total: %w", err)
		}
	}

	p := queries.PreviewPlanParams{
		InvoiceCount: f.count,
		MinTotal:     minTotal,
		MaxTotal:     maxTotal,
	}
	if p.StartDate, err = parseDate(f.startDate, loc); err != nil {
		return queries.PreviewPlanParams{}, fmt.Errorf("--start: %w", err)
	}
	if p.EndDate, err = parseDate(f.endDate, loc); err != nil {
		return queries.PreviewPlanParams{}, fmt.Errorf("--end: %w", err)
	}
	if c.Flags().Changed("start-hour") {
		p.StartHour = &f.startHour
	}
	if c.Flags().Changed("end-hour") {
		p.EndHour = &f.endHour
	}
	return p, nil
}

func parseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

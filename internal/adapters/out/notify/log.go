package notify

import (
	"context"
	"log/slog"

	"billing/internal/core/ports"
)

// LogNotifier writes plan summaries to the log.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.PlanNotifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "plan-notifier")}
}

func (n *LogNotifier) NotifyPlanCreated(ctx context.Context, summary ports.PlanSummary) error {
	n.logger.InfoContext(ctx, "billing plan created",
		"userId", summary.UserID,
		"taxId", summary.TaxID,
		"total", summary.Total.String(),
		"invoices", len(summary.Entries))
	return nil
}

package queries

import (
	"context"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/services"
	"billing/internal/core/ports"
)

const (
	defaultStartHour = 7
	defaultEndHour   = 23

	whenLayout = "02/01/2006 15:04"
)

var (
	defaultMinPart = kernel.MustMoney("35000")
	defaultMaxPart = kernel.MustMoney("135000")
)

type PreviewPlanQueryHandler struct {
	planner  services.Planner
	calendar ports.Calendar
	clock    ports.Clock
	minPart  kernel.Money
	maxPart  kernel.Money
}

func NewPreviewPlanQueryHandler(
	planner services.Planner,
	calendar ports.Calendar,
	clock ports.Clock,
	minPart, maxPart kernel.Money,
) PreviewPlanQueryHandler {
	if !minPart.IsPositive() {
		minPart = defaultMinPart
	}
	if !maxPart.IsPositive() {
		maxPart = defaultMaxPart
	}
	return PreviewPlanQueryHandler{
		planner:  planner,
		calendar: calendar,
		clock:    clock,
		minPart:  minPart,
		maxPart:  maxPart,
	}
}

func (h PreviewPlanQueryHandler) Handle(_ context.Context, query PreviewPlanQuery) (PreviewPlanQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return PreviewPlanQueryResponse{}, err
	}

	p := query.Params()
	now := h.clock.Now().In(h.calendar.Location())
	startDay, endDay := services.ResolveWindow(p.StartDate, p.EndDate, now)

	startHour, endHour := defaultStartHour, defaultEndHour
	if p.StartHour != nil {
		startHour = *p.StartHour
	}
	if p.EndHour != nil {
		endHour = *p.EndHour
	}

	plan, err := h.planner.Plan(services.PlanRequest{
		MinTotal:  p.MinTotal,
		MaxTotal:  p.MaxTotal,
		Count:     p.InvoiceCount,
		MinPart:   h.minPart,
		MaxPart:   h.maxPart,
		StartHour: startHour,
		EndHour:   endHour,
		StartDay:  startDay,
		EndDay:    endDay,
	})
	if err != nil {
		return PreviewPlanQueryResponse{}, err
	}

	resp := PreviewPlanQueryResponse{
		Total: plan.Total,
		Items: make([]PreviewItem, 0, len(plan.Items)),
	}
	for _, item := range plan.Items {
		pi := PreviewItem{Amount: item.Amount, Spec: item.Spec.String()}
		if next, ok := h.calendar.Next(item.Spec, now); ok {
			pi.DueAt = next
			pi.When = next.Format(whenLayout)
		}
		resp.Items = append(resp.Items, pi)
	}

	return resp, nil
}

package services

import (
	"fmt"
	"time"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
)

// PlanItem is one invoice of a plan: an amount and when to emit it.
type PlanItem struct {
	Amount kernel.Money
	Spec   schedule.Spec
}

// Plan is the ordered output of one billing request. It is consumed once to
// create jobs and is never stored.
type Plan struct {
	Total kernel.Money
	Items []PlanItem
}

// PlanRequest bounds the amounts and the emission windows of a plan.
type PlanRequest struct {
	MinTotal kernel.Money
	MaxTotal kernel.Money
	Count    int
	MinPart  kernel.Money
	MaxPart  kernel.Money

	StartHour int
	EndHour   int
	StartDay  int
	EndDay    int
}

// Planner pairs a Partitioner and a TimeSampler.
type Planner struct {
	partitioner Partitioner
	sampler     TimeSampler
}

func NewPlanner(rnd RandomSource) Planner {
	return Planner{
		partitioner: NewPartitioner(rnd),
		sampler:     NewTimeSampler(rnd),
	}
}

// Plan draws a total in [MinTotal, MaxTotal], splits it and samples one
// schedule per part. Validation errors are returned before anything is drawn
// from the sampler, so a failed plan has no side effects.
func (p Planner) Plan(req PlanRequest) (Plan, error) {
	if err := validateWindow(req.Count, req.StartHour, req.EndHour, req.StartDay, req.EndDay); err != nil {
		return Plan{}, err
	}

	total, err := p.partitioner.RandomTotal(req.MinTotal, req.MaxTotal)
	if err != nil {
		return Plan{}, err
	}

	amounts, err := p.partitioner.Split(total, req.Count, req.MinPart, req.MaxPart)
	if err != nil {
		return Plan{}, err
	}

	specs, err := p.sampler.Sample(req.Count, req.StartHour, req.EndHour, req.StartDay, req.EndDay)
	if err != nil {
		return Plan{}, err
	}

	if len(specs) != len(amounts) {
		return Plan{}, fmt.Errorf("plan has %d amounts and %d schedules", len(amounts), len(specs))
	}

	items := make([]PlanItem, len(amounts))
	for i := range amounts {
		items[i] = PlanItem{Amount: amounts[i], Spec: specs[i]}
	}

	return Plan{Total: total, Items: items}, nil
}

// ResolveWindow turns optional plan dates into a day-of-month range relative
// to now. A missing start is tomorrow; a missing end is three days before the
// end of now's month. Dates are read in now's location.
func ResolveWindow(startDate, endDate *time.Time, now time.Time) (startDay, endDay int) {
	if startDate != nil {
		startDay = startDate.In(now.Location()).Day()
	} else {
		startDay = now.AddDate(0, 0, 1).Day()
	}

	if endDate != nil {
		endDay = endDate.In(now.Location()).Day()
	} else {
		endDay = lastDayOfMonth(now) - 3
	}
	return startDay, endDay
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

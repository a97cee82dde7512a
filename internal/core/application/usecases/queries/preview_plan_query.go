package queries

import (
	"errors"
	"fmt"
	"time"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

var (
	ErrPreviewPlanQueryIsNotConstructed = errors.New(
		"PreviewPlanQuery must be created via NewPreviewPlanQuery constructor",
	)
)

// PreviewPlanParams mirrors a plan request without the user. Nil fields take
// the same defaults as plan creation.
type PreviewPlanParams struct {
	StartDate    *time.Time
	EndDate      *time.Time
	InvoiceCount int
	MinTotal     kernel.Money
	MaxTotal     kernel.Money
	StartHour    *int
	EndHour      *int
}

// PreviewPlanQuery draws a plan and returns it without persisting anything.
type PreviewPlanQuery struct {
	params PreviewPlanParams

	guard guard.ConstructorGuard
}

func NewPreviewPlanQuery(p PreviewPlanParams) (PreviewPlanQuery, error) {
	if p.InvoiceCount <= 0 {
		return PreviewPlanQuery{}, errs.NewValueIsInvalidErrorWithCause("invoiceCount",
			fmt.Errorf("%d is not greater than 0", p.InvoiceCount))
	}
	if !p.MinTotal.IsPositive() {
		return PreviewPlanQuery{}, errs.NewValueIsInvalidErrorWithCause("minTotal",
			fmt.Errorf("%s is not greater than 0", p.MinTotal))
	}

	return PreviewPlanQuery{params: p, guard: guard.NewConstructorGuard()}, nil
}

func (q PreviewPlanQuery) Validate() error {
	return q.guard.Validate(ErrPreviewPlanQueryIsNotConstructed)
}

func (q PreviewPlanQuery) Params() PreviewPlanParams {
	return q.params
}

type PreviewPlanQueryResponse struct {
	Total kernel.Money
	Items []PreviewItem
}

// PreviewItem is one drawn invoice. DueAt is the next occurrence of Spec and
// is zero when the spec has none.
type PreviewItem struct {
	Amount kernel.Money
	Spec   string
	DueAt  time.Time
	When   string
}

package commands

import (
	"errors"
	"fmt"
	"time"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/domain/services"
	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

const (
	DefaultStartHour = 7
	DefaultEndHour   = 23
)

var ErrCreateBillingPlanCommandIsNotConstructed = errors.New(
	"CreateBillingPlanCommand must be created via NewCreateBillingPlanCommand constructor",
)

// CreateBillingPlanParams is the raw request. Nil dates and nil hours take
// their defaults: the window starts tomorrow and ends three days before the
// end of the month, between 07:00 and 23:59.
type CreateBillingPlanParams struct {
	UserID       int64
	StartDate    *time.Time
	EndDate      *time.Time
	InvoiceCount int
	MinTotal     kernel.Money
	MaxTotal     kernel.Money
	StartHour    *int
	EndHour      *int
}

// CreateBillingPlanCommand asks for a total between MinTotal and MaxTotal to
// be billed for a user in InvoiceCount invoices spread over the window.
//
// Example:
//
//	cmd, err := NewCreateBillingPlanCommand(CreateBillingPlanParams{
//	    UserID:       7,
//	    InvoiceCount: 20,
//	    MinTotal:     kernel.MustMoney("900000"),
//	    MaxTotal:     kernel.MustMoney("1000000"),
//	})
type CreateBillingPlanCommand struct { //nolint:recvcheck //using for validation
	userID       int64
	startDate    *time.Time
	endDate      *time.Time
	invoiceCount int
	minTotal     kernel.Money
	maxTotal     kernel.Money
	startHour    int
	endHour      int

	guard guard.ConstructorGuard
}

func NewCreateBillingPlanCommand(p CreateBillingPlanParams) (CreateBillingPlanCommand, error) {
	cmd := CreateBillingPlanCommand{
		startDate: p.StartDate,
		endDate:   p.EndDate,
		startHour: DefaultStartHour,
		endHour:   DefaultEndHour,
		guard:     guard.NewConstructorGuard(),
	}
	if p.StartHour != nil {
		cmd.startHour = *p.StartHour
	}
	if p.EndHour != nil {
		cmd.endHour = *p.EndHour
	}

	if err := errors.Join(
		cmd.setUserID(p.UserID),
		cmd.setInvoiceCount(p.InvoiceCount),
		cmd.setTotals(p.MinTotal, p.MaxTotal),
		cmd.validateHours(),
		cmd.validateDates(),
	); err != nil {
		return CreateBillingPlanCommand{}, err
	}

	return cmd, nil
}

func (c CreateBillingPlanCommand) Validate() error {
	return c.guard.Validate(ErrCreateBillingPlanCommandIsNotConstructed)
}

func (c CreateBillingPlanCommand) UserID() int64 {
	return c.userID
}

func (c CreateBillingPlanCommand) StartDate() *time.Time {
	return c.startDate
}

func (c CreateBillingPlanCommand) EndDate() *time.Time {
	return c.endDate
}

func (c CreateBillingPlanCommand) InvoiceCount() int {
	return c.invoiceCount
}

func (c CreateBillingPlanCommand) MinTotal() kernel.Money {
	return c.minTotal
}

func (c CreateBillingPlanCommand) MaxTotal() kernel.Money {
	return c.maxTotal
}

func (c CreateBillingPlanCommand) StartHour() int {
	return c.startHour
}

func (c CreateBillingPlanCommand) EndHour() int {
	return c.endHour
}

// Window resolves the day range of the plan relative to now, in now's location.
func (c CreateBillingPlanCommand) Window(now time.Time) (startDay, endDay int) {
	return services.ResolveWindow(c.startDate, c.endDate, now)
}

func (c *CreateBillingPlanCommand) setUserID(userID int64) error {
	if userID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("userId", fmt.Errorf("%d is not greater than 0", userID))
	}
	c.userID = userID
	return nil
}

func (c *CreateBillingPlanCommand) setInvoiceCount(count int) error {
	if count <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("invoiceCount", fmt.Errorf("%d is not greater than 0", count))
	}
	c.invoiceCount = count
	return nil
}

func (c *CreateBillingPlanCommand) setTotals(minTotal, maxTotal kernel.Money) error {
	if !minTotal.IsPositive() {
		return errs.NewValueIsInvalidErrorWithCause("minTotal", fmt.Errorf("%s is not greater than 0", minTotal))
	}
	if minTotal.Cmp(maxTotal) > 0 {
		return errs.NewValueIsInvalidErrorWithCause("maxTotal",
			fmt.Errorf("%s is less than minTotal %s", maxTotal, minTotal))
	}
	c.minTotal = minTotal
	c.maxTotal = maxTotal
	return nil
}

func (c *CreateBillingPlanCommand) validateHours() error {
	return errors.Join(
		checkHour("startHour", c.startHour),
		checkHour("endHour", c.endHour),
		func() error {
			if c.startHour > c.endHour {
				return errs.NewValueIsInvalidErrorWithCause("startHour",
					fmt.Errorf("%d is after endHour %d", c.startHour, c.endHour))
			}
			return nil
		}(),
	)
}

func (c *CreateBillingPlanCommand) validateDates() error {
	if c.startDate != nil && c.endDate != nil && c.startDate.After(*c.endDate) {
		return errs.NewValueIsInvalidErrorWithCause("startDate",
			fmt.Errorf("%s is after endDate %s", c.startDate.Format(time.DateOnly), c.endDate.Format(time.DateOnly)))
	}
	return nil
}

func checkHour(name string, hour int) error {
	if hour < schedule.MinHour || hour > schedule.MaxHour {
		return errs.NewValueIsOutOfRangeError(name, hour, schedule.MinHour, schedule.MaxHour)
	}
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"slices"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

const DefaultFailReason = "failed by operator"

var ErrFailJobsCommandIsNotConstructed = errors.New(
	"FailJobsCommand must be created via NewFailJobsCommand constructor",
)

// FailJobsCommand marks jobs Failed in bulk. Completed and running jobs are
// left alone.
type FailJobsCommand struct {
	ids    []int64
	reason string

	guard guard.ConstructorGuard
}

func NewFailJobsCommand(ids []int64, reason string) (FailJobsCommand, error) {
	if len(ids) == 0 {
		return FailJobsCommand{}, errs.NewValueIsRequiredError("ids")
	}
	for _, id := range ids {
		if id <= 0 {
			return FailJobsCommand{}, errs.NewValueIsInvalidErrorWithCause("ids",
				fmt.Errorf("%d is not greater than 0", id))
		}
	}
	if reason == "" {
		reason = DefaultFailReason
	}

	unique := slices.Clone(ids)
	slices.Sort(unique)

	return FailJobsCommand{
		ids:    slices.Compact(unique),
		reason: reason,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

func (c FailJobsCommand) Validate() error {
	return c.guard.Validate(ErrFailJobsCommandIsNotConstructed)
}

// IDs returns the sorted, de-duplicated job ids.
func (c FailJobsCommand) IDs() []int64 {
	return slices.Clone(c.ids)
}

func (c FailJobsCommand) Reason() string {
	return c.reason
}

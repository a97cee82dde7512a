package commands

import (
	"errors"
	"fmt"

	"billing/internal/pkg/errs"
	"billing/internal/pkg/guard"
)

var ErrDeleteUserJobsCommandIsNotConstructed = errors.New(
	"DeleteUserJobsCommand must be created via NewDeleteUserJobsCommand constructor",
)

// DeleteUserJobsCommand removes every job of a user, whatever its status.
type DeleteUserJobsCommand struct {
	userID int64

	guard guard.ConstructorGuard
}

func NewDeleteUserJobsCommand(userID int64) (DeleteUserJobsCommand, error) {
	if userID <= 0 {
		return DeleteUserJobsCommand{}, errs.NewValueIsInvalidErrorWithCause("userId",
			fmt.Errorf("%d is not greater than 0", userID))
	}

	return DeleteUserJobsCommand{
		userID: userID,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

func (c DeleteUserJobsCommand) Validate() error {
	return c.guard.Validate(ErrDeleteUserJobsCommandIsNotConstructed)
}

func (c DeleteUserJobsCommand) UserID() int64 {
	return c.userID
}

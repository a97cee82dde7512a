package queries

import (
	"errors"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/pkg/guard"
)

var (
	ErrGetJobsQueryIsNotConstructed = errors.New(
		"GetJobsQuery must be created via NewGetJobsQuery constructor",
	)
)

// GetJobsQuery lists the jobs created from the first day of last month to the
// end of the current month, newest first. Jobs of external clients are only
// included when External is set.
//
// Example:
//
//	query := NewGetJobsQuery(false, time.Now().In(loc))
//	jobs, err := handler.Handle(ctx, query)
type GetJobsQuery struct {
	external bool
	now      time.Time

	guard guard.ConstructorGuard
}

func NewGetJobsQuery(external bool, now time.Time) GetJobsQuery {
	return GetJobsQuery{
		external: external,
		now:      now,
		guard:    guard.NewConstructorGuard(),
	}
}

func (q GetJobsQuery) Validate() error {
	return q.guard.Validate(ErrGetJobsQueryIsNotConstructed)
}

func (q GetJobsQuery) External() bool {
	return q.external
}

// Window returns the half-open creation interval [from, to) covered by the
// query, in the location of now.
func (q GetJobsQuery) Window() (from, to time.Time) {
	loc := q.now.Location()
	from = time.Date(q.now.Year(), q.now.Month()-1, 1, 0, 0, 0, 0, loc)
	to = time.Date(q.now.Year(), q.now.Month()+1, 1, 0, 0, 0, 0, loc)
	return from, to
}

type GetJobsQueryResponse struct {
	ID                int64
	UserID            int64
	SalePoint         int
	Spec              string
	Status            job.Status
	ValueToBill       kernel.Money
	External          bool
	AuthorizationCode *string
	VoucherNumber     *int64
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

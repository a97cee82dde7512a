package job

import (
	"fmt"

	"billing/internal/pkg/errs"
)

// Status represents the lifecycle state of a job.
//
// State transitions:
//
//	Pending ──claim──> InProgress ──┬──> Completed
//	   │                   ^        └──> Failed ──┐
//	   │                   └───── retry claim ────┘
//	   └──── administrative fail ────> Failed
//
// InProgress is only visible to the job store; it exists so that two concurrent
// attempts on the same job serialize on a conditional update.
type Status int

const (
	// Unknown catches uninitialized values.
	Unknown Status = iota

	// Pending jobs are waiting for their scheduled occurrence.
	Pending

	// InProgress jobs are claimed by exactly one execution attempt.
	InProgress

	// Completed jobs have an authorized invoice. Final.
	Completed

	// Failed jobs ended with an error or were failed by an administrator.
	Failed
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:    "Unknown",
		Pending:    "Pending",
		InProgress: "InProgress",
		Completed:  "Completed",
		Failed:     "Failed",
	}
}

// Validate rejects Unknown and out-of-range values read from storage or input.
func (s Status) Validate() error {
	if s <= Unknown || s > Failed {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// ParseStatus maps a status name back to its value.
func ParseStatus(name string) (Status, error) {
	for status, str := range getStatusStrings() {
		if str == name && status != Unknown {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", name))
}

// IsTerminal reports whether an execution attempt has finished with this status.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed
}

// ClaimableFrom lists the statuses an attempt may claim. A manual retry may
// also claim Failed jobs.
func ClaimableFrom(retry bool) []Status {
	if retry {
		return []Status{Pending, Failed}
	}
	return []Status{Pending}
}

// Claim transitions to InProgress.
//
// Valid transitions:
//   - Pending -> InProgress
//   - Failed -> InProgress (retry only)
func (s Status) Claim(retry bool) (Status, error) {
	for _, from := range ClaimableFrom(retry) {
		if s == from {
			return InProgress, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%s is not a valid status to claim", s.String()),
	)
}

// Complete transitions InProgress -> Completed.
func (s Status) Complete() (Status, error) {
	if s != InProgress {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to complete", s.String()),
		)
	}
	return Completed, nil
}

// Fail transitions InProgress or Pending -> Failed. Pending is accepted for
// administrative bulk failing. Completed is never overwritten and a Failed job
// is not failed again.
func (s Status) Fail() (Status, error) {
	if s != InProgress && s != Pending {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to fail", s.String()),
		)
	}
	return Failed, nil
}

package job

import (
	"errors"
	"fmt"
	"time"

	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/pkg/errs"
)

// MaxFailureReasonLength is the longest failure reason kept, in characters.
const MaxFailureReasonLength = 512

var (
	// ErrJobIsNotConstructed is returned when a Job was not created through NewJob or RestoreJob.
	ErrJobIsNotConstructed = errors.New("Job must be created via NewJob constructor")

	// ErrIDAlreadyAssigned is returned when the store tries to number a job twice.
	ErrIDAlreadyAssigned = errors.New("job id is already assigned")

	// ErrClaimTokenMismatch is returned when an attempt finalizes a job it does not own.
	ErrClaimTokenMismatch = errors.New("claim token does not match the job's current claim")
)

// Authorization is what the invoicing service returns for an approved invoice.
type Authorization struct {
	Code          string
	Expiry        time.Time
	VoucherNumber int64
}

// Job is one scheduled invoice emission. It is the aggregate root of the job
// store; the scheduler only ever holds its id.
//
// Job follows these invariants:
//   - valueToBill is positive
//   - schedule and valueToBill are immutable after creation
//   - updatedAt changes only on a status transition
//   - an InProgress job always carries the claim token of its attempt
type Job struct {
	id        int64
	status    Status
	spec      schedule.Spec
	userID    int64
	salePoint int
	value     kernel.Money
	external  bool

	createdAt time.Time
	updatedAt time.Time

	claimToken *kernel.UUID
	claimedAt  *time.Time

	authorization *Authorization
	failureReason string

	isConstructed bool
}

// NewJob creates a Pending job. The id is assigned by the job store on insert.
//
// Example:
//
//	spec := schedule.MustSpec(30, 14, 3)
//	j, err := job.NewJob(userID, salePoint, kernel.MustMoney("35120.55"), spec, false, time.Now())
//	if err != nil {
//	    return fmt.Errorf("invalid job: %w", err)
//	}
func NewJob(
	userID int64,
	salePoint int,
	value kernel.Money,
	spec schedule.Spec,
	external bool,
	now time.Time,
) (*Job, error) {
	j := &Job{
		status:        Pending,
		external:      external,
		createdAt:     now,
		updatedAt:     now,
		isConstructed: true,
	}

	if err := errors.Join(
		j.setUserID(userID),
		j.setSalePoint(salePoint),
		j.setValue(value),
		j.setSpec(spec),
	); err != nil {
		return nil, err
	}

	return j, nil
}

// RestoreJobParams carries persisted state back into an aggregate.
type RestoreJobParams struct {
	ID            int64
	Status        Status
	Spec          schedule.Spec
	UserID        int64
	SalePoint     int
	Value         kernel.Money
	External      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClaimToken    *kernel.UUID
	ClaimedAt     *time.Time
	Authorization *Authorization
	FailureReason string
}

// RestoreJob rebuilds a job read from storage, validating the same invariants
// as NewJob plus status consistency.
func RestoreJob(p RestoreJobParams) (*Job, error) {
	j := &Job{
		id:            p.ID,
		external:      p.External,
		createdAt:     p.CreatedAt,
		updatedAt:     p.UpdatedAt,
		claimToken:    p.ClaimToken,
		claimedAt:     p.ClaimedAt,
		authorization: p.Authorization,
		failureReason: p.FailureReason,
		isConstructed: true,
	}

	if err := errors.Join(
		j.setUserID(p.UserID),
		j.setSalePoint(p.SalePoint),
		j.setValue(p.Value),
		j.setSpec(p.Spec),
		p.Status.Validate(),
	); err != nil {
		return nil, err
	}
	j.status = p.Status

	if j.status == InProgress && j.claimToken == nil {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("job %d is InProgress without a claim token", p.ID),
		)
	}

	return j, nil
}

// Validate ensures the job was built by NewJob or RestoreJob.
func (j *Job) Validate() error {
	if j == nil || !j.isConstructed {
		return ErrJobIsNotConstructed
	}
	return nil
}

func (j *Job) ID() int64 {
	return j.id
}

func (j *Job) Status() Status {
	return j.status
}

func (j *Job) Spec() schedule.Spec {
	return j.spec
}

func (j *Job) UserID() int64 {
	return j.userID
}

func (j *Job) SalePoint() int {
	return j.salePoint
}

func (j *Job) ValueToBill() kernel.Money {
	return j.value
}

func (j *Job) External() bool {
	return j.external
}

func (j *Job) CreatedAt() time.Time {
	return j.createdAt
}

func (j *Job) UpdatedAt() time.Time {
	return j.updatedAt
}

// ClaimToken returns the token of the attempt owning the job, or nil.
func (j *Job) ClaimToken() *kernel.UUID {
	return j.claimToken
}

func (j *Job) ClaimedAt() *time.Time {
	return j.claimedAt
}

// Authorization returns the invoicing authorization of a Completed job, or nil.
func (j *Job) Authorization() *Authorization {
	return j.authorization
}

func (j *Job) FailureReason() string {
	return j.failureReason
}

// AssignID numbers a freshly inserted job. Only the job store calls it.
func (j *Job) AssignID(id int64) error {
	if j.id != 0 {
		return ErrIDAlreadyAssigned
	}
	if id <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("id", fmt.Errorf("%d is not greater than 0", id))
	}
	j.id = id
	return nil
}

// Claim hands the job to one execution attempt identified by token.
func (j *Job) Claim(token kernel.UUID, retry bool, now time.Time) error {
	if err := token.Validate(); err != nil {
		return err
	}

	newStatus, err := j.status.Claim(retry)
	if err != nil {
		return err
	}

	j.status = newStatus
	j.claimToken = &token
	j.claimedAt = &now
	j.updatedAt = now
	return nil
}

// Complete records the authorization of the attempt holding token.
func (j *Job) Complete(token kernel.UUID, auth Authorization, now time.Time) error {
	if err := j.checkToken(token); err != nil {
		return err
	}
	if auth.Code == "" {
		return errs.NewValueIsRequiredError("authorizationCode")
	}

	newStatus, err := j.status.Complete()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.authorization = &auth
	j.failureReason = ""
	j.claimToken = nil
	j.updatedAt = now
	return nil
}

// Fail records the failure of the attempt holding token.
func (j *Job) Fail(token kernel.UUID, reason string, now time.Time) error {
	if err := j.checkToken(token); err != nil {
		return err
	}
	return j.fail(reason, now)
}

// ForceFail is the administrative transition used by bulk operations. It does
// not require a claim and never touches Completed or already Failed jobs.
func (j *Job) ForceFail(reason string, now time.Time) error {
	return j.fail(reason, now)
}

func (j *Job) fail(reason string, now time.Time) error {
	newStatus, err := j.status.Fail()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.failureReason = truncateReason(reason)
	j.claimToken = nil
	j.updatedAt = now
	return nil
}

func (j *Job) checkToken(token kernel.UUID) error {
	if j.claimToken == nil || !j.claimToken.IsEqual(token) {
		return ErrClaimTokenMismatch
	}
	return nil
}

func (j *Job) setUserID(userID int64) error {
	if userID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("userId", fmt.Errorf("%d is not greater than 0", userID))
	}
	j.userID = userID
	return nil
}

func (j *Job) setSalePoint(salePoint int) error {
	if salePoint <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("salePoint", fmt.Errorf("%d is not greater than 0", salePoint))
	}
	j.salePoint = salePoint
	return nil
}

func (j *Job) setValue(value kernel.Money) error {
	if !value.IsPositive() {
		return errs.NewValueIsInvalidErrorWithCause("valueToBill", fmt.Errorf("%s is not greater than 0", value))
	}
	j.value = value
	return nil
}

func (j *Job) setSpec(spec schedule.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	j.spec = spec
	return nil
}

func truncateReason(reason string) string {
	runes := []rune(reason)
	if len(runes) <= MaxFailureReasonLength {
		return reason
	}
	return string(runes[:MaxFailureReasonLength])
}

package jobrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.JobRepository = (*GormJobRepository)(nil)

// GormJobRepository implements ports.JobRepository using GORM.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a repository bound to db, which is either the
// root connection or an open transaction.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// Add inserts a new Pending job and assigns the generated id to the aggregate.
func (r *GormJobRepository) Add(ctx context.Context, aggregate *job.Job) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if aggregate.Status() != job.Pending {
		return errs.NewValueIsInvalidErrorWithCause("status",
			fmt.Errorf("new jobs must be %s, got %s", job.Pending, aggregate.Status()))
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return persistenceError("insert job", err)
	}

	return aggregate.AssignID(dto.ID)
}

// Get retrieves a job by id.
func (r *GormJobRepository) Get(ctx context.Context, id int64) (*job.Job, error) {
	var dto JobDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("job", id)
		}
		return nil, persistenceError("get job", err)
	}

	return toDomain(dto)
}

// FindAllPending retrieves every Pending job ordered by id.
func (r *GormJobRepository) FindAllPending(ctx context.Context) ([]*job.Job, error) {
	var dtos []JobDTO
	err := r.db.WithContext(ctx).
		Where("status = ?", int(job.Pending)).
		Order("id").
		Find(&dtos).Error
	if err != nil {
		return nil, persistenceError("find pending jobs", err)
	}

	return toDomainList(dtos)
}

// FindInProgressClaimedBefore retrieves InProgress jobs claimed before t.
func (r *GormJobRepository) FindInProgressClaimedBefore(ctx context.Context, t time.Time) ([]*job.Job, error) {
	var dtos []JobDTO
	err := r.db.WithContext(ctx).
		Where("status = ? AND claimed_at < ?", int(job.InProgress), t.UTC()).
		Order("id").
		Find(&dtos).Error
	if err != nil {
		return nil, persistenceError("find stale jobs", err)
	}

	return toDomainList(dtos)
}

// Claim moves the job to InProgress under token. The UPDATE matches the status
// the job was read with, so only one of two concurrent claimers succeeds.
func (r *GormJobRepository) Claim(
	ctx context.Context,
	id int64,
	retry bool,
	token kernel.UUID,
	now time.Time,
) (*job.Job, error) {
	aggregate, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := aggregate.Status()
	if err := aggregate.Claim(token, retry, now); err != nil {
		return nil, fmt.Errorf("%w: job %d is %s: %w", ports.ErrJobNotClaimable, id, from, err)
	}

	result := r.db.WithContext(ctx).
		Model(&JobDTO{}).
		Where("id = ? AND status = ?", id, int(from)).
		Updates(map[string]any{
			"status":      int(aggregate.Status()),
			"claim_token": token.Bytes(),
			"claimed_at":  now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, persistenceError("claim job", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: job %d was claimed concurrently", ports.ErrJobNotClaimable, id)
	}

	return aggregate, nil
}

// Finalize writes the terminal state of aggregate if the row is still owned by token.
func (r *GormJobRepository) Finalize(ctx context.Context, aggregate *job.Job, token kernel.UUID) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if !aggregate.Status().IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause("status",
			fmt.Errorf("job %d is %s, not terminal", aggregate.ID(), aggregate.Status()))
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&JobDTO{}).
		Where("id = ? AND status = ? AND claim_token = ?", dto.ID, int(job.InProgress), token.Bytes()).
		Updates(map[string]any{
			"status":               dto.Status,
			"claim_token":          nil,
			"authorization_code":   dto.AuthorizationCode,
			"authorization_expiry": dto.AuthorizationExpiry,
			"voucher_number":       dto.VoucherNumber,
			"failure_reason":       dto.FailureReason,
			"updated_at":           dto.UpdatedAt,
		})
	if result.Error != nil {
		return persistenceError("finalize job", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: job %d is no longer held by this attempt", ports.ErrJobNotClaimable, dto.ID)
	}

	return nil
}

// UpdateMany force-fails ids. Completed and InProgress rows, and rows already
// in the target status, are left alone and not reported.
func (r *GormJobRepository) UpdateMany(
	ctx context.Context,
	ids []int64,
	status job.Status,
	reason string,
	now time.Time,
) ([]int64, error) {
	if status != job.Failed {
		return nil, errs.NewValueIsInvalidErrorWithCause("status",
			fmt.Errorf("bulk updates only support %s, got %s", job.Failed, status))
	}
	if len(ids) == 0 {
		return []int64{}, nil
	}

	untouchable := []int{int(job.Completed), int(job.InProgress), int(status)}
	db := r.db.WithContext(ctx)

	var affected []int64
	err := db.Model(&JobDTO{}).
		Where("id IN ? AND status NOT IN ?", ids, untouchable).
		Order("id").
		Pluck("id", &affected).Error
	if err != nil {
		return nil, persistenceError("select jobs to update", err)
	}
	if len(affected) == 0 {
		return []int64{}, nil
	}

	err = db.Model(&JobDTO{}).
		Where("id IN ? AND status NOT IN ?", affected, untouchable).
		Updates(map[string]any{
			"status":         int(status),
			"failure_reason": reason,
			"claim_token":    nil,
			"updated_at":     now,
		}).Error
	if err != nil {
		return nil, persistenceError("update jobs", err)
	}

	return affected, nil
}

// DeleteByUser removes every job of userID.
func (r *GormJobRepository) DeleteByUser(ctx context.Context, userID int64) ([]int64, error) {
	db := r.db.WithContext(ctx)

	var ids []int64
	if err := db.Model(&JobDTO{}).Where("user_id = ?", userID).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, persistenceError("select user jobs", err)
	}
	if len(ids) == 0 {
		return []int64{}, nil
	}

	if err := db.Where("id IN ?", ids).Delete(&JobDTO{}).Error; err != nil {
		return nil, persistenceError("delete user jobs", err)
	}

	return ids, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ports.ErrPersistence, op, err)
}

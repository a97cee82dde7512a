// Package jobrepo persists the Job aggregate with GORM. Every state change is a
// conditional UPDATE on the current status so that two writers racing on the
// same job are serialized by the database.
package jobrepo

import (
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobDTO is the row of the jobs table. Timestamps are written by the
// aggregate, never by GORM, so updated_at only moves on a status transition.
type JobDTO struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement"`
	ScheduleSpec        string          `gorm:"size:30;not null"`
	Status              int             `gorm:"not null;index"`
	UserID              int64           `gorm:"not null;index"`
	SalePoint           int             `gorm:"not null"`
	ValueToBill         decimal.Decimal `gorm:"type:decimal(16,2);not null"`
	External            bool            `gorm:"not null;default:false"`
	ClaimToken          *uuid.UUID      `gorm:"type:uuid"`
	ClaimedAt           *time.Time
	AuthorizationCode   *string `gorm:"size:32"`
	AuthorizationExpiry *time.Time
	VoucherNumber       *int64
	FailureReason       string    `gorm:"size:512"`
	CreatedAt           time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt           time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (JobDTO) TableName() string {
	return "jobs"
}

func fromDomain(j *job.Job) JobDTO {
	dto := JobDTO{
		ID:            j.ID(),
		ScheduleSpec:  j.Spec().String(),
		Status:        int(j.Status()),
		UserID:        j.UserID(),
		SalePoint:     j.SalePoint(),
		ValueToBill:   j.ValueToBill().Decimal(),
		External:      j.External(),
		ClaimedAt:     j.ClaimedAt(),
		FailureReason: j.FailureReason(),
		CreatedAt:     j.CreatedAt(),
		UpdatedAt:     j.UpdatedAt(),
	}

	if token := j.ClaimToken(); token != nil {
		raw := token.Bytes()
		dto.ClaimToken = &raw
	}

	if auth := j.Authorization(); auth != nil {
		code := auth.Code
		expiry := auth.Expiry
		voucher := auth.VoucherNumber
		dto.AuthorizationCode = &code
		dto.AuthorizationExpiry = &expiry
		dto.VoucherNumber = &voucher
	}

	return dto
}

func toDomain(dto JobDTO) (*job.Job, error) {
	spec, err := schedule.ParseSpec(dto.ScheduleSpec)
	if err != nil {
		return nil, err
	}

	value, err := kernel.NewMoney(dto.ValueToBill)
	if err != nil {
		return nil, err
	}

	var token *kernel.UUID
	if dto.ClaimToken != nil {
		t, tokenErr := kernel.UUIDFromString(dto.ClaimToken.String())
		if tokenErr != nil {
			return nil, tokenErr
		}
		token = &t
	}

	var auth *job.Authorization
	if dto.AuthorizationCode != nil {
		auth = &job.Authorization{Code: *dto.AuthorizationCode}
		if dto.AuthorizationExpiry != nil {
			auth.Expiry = *dto.AuthorizationExpiry
		}
		if dto.VoucherNumber != nil {
			auth.VoucherNumber = *dto.VoucherNumber
		}
	}

	return job.RestoreJob(job.RestoreJobParams{
		ID:            dto.ID,
		Status:        job.Status(dto.Status),
		Spec:          spec,
		UserID:        dto.UserID,
		SalePoint:     dto.SalePoint,
		Value:         value,
		External:      dto.External,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
		ClaimToken:    token,
		ClaimedAt:     dto.ClaimedAt,
		Authorization: auth,
		FailureReason: dto.FailureReason,
	})
}

func toDomainList(dtos []JobDTO) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0, len(dtos))
	for _, dto := range dtos {
		j, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

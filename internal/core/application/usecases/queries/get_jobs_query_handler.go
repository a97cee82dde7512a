package queries

import (
	"context"
	"database/sql"
	"strings"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetJobsQueryHandler reads the job listing straight from the jobs table.
type GetJobsQueryHandler struct {
	db *gorm.DB
}

func NewGetJobsQueryHandler(db *gorm.DB) GetJobsQueryHandler {
	return GetJobsQueryHandler{db: db}
}

func (h GetJobsQueryHandler) Handle(ctx context.Context, query GetJobsQuery) ([]GetJobsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	from, to := query.Window()

	var sb strings.Builder
	sb.WriteString(`
		SELECT
			id,
			user_id,
			sale_point,
			schedule_spec,
			status,
			value_to_bill,
			external,
			authorization_code,
			voucher_number,
			failure_reason,
			created_at,
			updated_at
		FROM jobs
		WHERE created_at >= ? AND created_at < ?`)
	if !query.External() {
		sb.WriteString(` AND external = ?`)
	}
	sb.WriteString(`
		ORDER BY created_at DESC, id DESC`)

	args := []any{from.UTC(), to.UTC()}
	if !query.External() {
		args = append(args, false)
	}

	rows, err := h.db.WithContext(ctx).Raw(sb.String(), args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]GetJobsQueryResponse, 0)
	for rows.Next() {
		var resp GetJobsQueryResponse
		var status int
		var value decimal.Decimal
		var authCode sql.NullString
		var voucher sql.NullInt64
		var reason sql.NullString

		err = rows.Scan(
			&resp.ID,
			&resp.UserID,
			&resp.SalePoint,
			&resp.Spec,
			&status,
			&value,
			&resp.External,
			&authCode,
			&voucher,
			&reason,
			&resp.CreatedAt,
			&resp.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		resp.Status = job.Status(status)
		if err = resp.Status.Validate(); err != nil {
			return nil, err
		}

		resp.ValueToBill, err = kernel.NewMoney(value)
		if err != nil {
			return nil, err
		}

		if authCode.Valid {
			resp.AuthorizationCode = &authCode.String
		}
		if voucher.Valid {
			resp.VoucherNumber = &voucher.Int64
		}
		resp.FailureReason = reason.String

		jobs = append(jobs, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

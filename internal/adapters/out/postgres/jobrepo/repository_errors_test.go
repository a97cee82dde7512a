package jobrepo_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"billing/internal/adapters/out/postgres/jobrepo"
	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errConnReset = errors.New("connection reset by peer")

func setupMockRepository(t *testing.T) (*jobrepo.GormJobRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return jobrepo.NewGormJobRepository(db), mock
}

func TestGormJobRepository_WrapsDriverErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("add", func(t *testing.T) {
		repo, mock := setupMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "jobs"`)).WillReturnError(errConnReset)

		j, err := job.NewJob(1, 1, kernel.MustMoney("100"), schedule.MustSpec(0, 9, 5), false, baseTime)
		require.NoError(t, err)

		err = repo.Add(ctx, j)
		require.ErrorIs(t, err, ports.ErrPersistence)
		require.ErrorIs(t, err, errConnReset)
		assert.Zero(t, j.ID())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		repo, mock := setupMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "jobs" WHERE id = $1`)).WillReturnError(errConnReset)

		_, err := repo.Get(ctx, 5)
		require.ErrorIs(t, err, ports.ErrPersistence)
		assert.NotErrorIs(t, err, errs.ErrObjectNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find pending", func(t *testing.T) {
		repo, mock := setupMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "jobs" WHERE status = $1`)).WillReturnError(errConnReset)

		_, err := repo.FindAllPending(ctx)
		require.ErrorIs(t, err, ports.ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update many", func(t *testing.T) {
		repo, mock := setupMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "jobs"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "jobs"`)).WillReturnError(errConnReset)

		affected, err := repo.UpdateMany(ctx, []int64{4}, job.Failed, "x", baseTime)
		require.ErrorIs(t, err, ports.ErrPersistence)
		assert.Nil(t, affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormJobRepository_Claim_LostRace(t *testing.T) {
	repo, mock := setupMockRepository(t)

	rows := sqlmock.NewRows([]string{
		"id", "schedule_spec", "status", "user_id", "sale_point", "value_to_bill", "external",
		"created_at", "updated_at",
	}).AddRow(int64(9), "0 10 3 * *", int(job.Pending), int64(1), 1, "35000.00", false, baseTime, baseTime)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "jobs" WHERE id = $1`)).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "jobs"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Claim(context.Background(), 9, false, kernel.NewUUID(), baseTime)

	require.ErrorIs(t, err, ports.ErrJobNotClaimable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

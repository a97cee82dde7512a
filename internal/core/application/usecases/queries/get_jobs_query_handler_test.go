package queries_test

import (
	"context"
	"testing"
	"time"

	"billing/internal/adapters/out/postgres/jobrepo"
	"billing/internal/core/application/usecases/queries"
	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GetJobsQueryHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	repo    *jobrepo.GormJobRepository
	handler queries.GetJobsQueryHandler
	now     time.Time
}

func (suite *GetJobsQueryHandlerTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(&jobrepo.JobDTO{}))

	suite.db = db
	suite.repo = jobrepo.NewGormJobRepository(db)
	suite.handler = queries.NewGetJobsQueryHandler(db)
	suite.now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func (suite *GetJobsQueryHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())
}

func (suite *GetJobsQueryHandlerTestSuite) addJob(userID int64, external bool, createdAt time.Time) *job.Job {
	j, err := job.NewJob(userID, 3, kernel.MustMoney("35120.55"), schedule.MustSpec(30, 14, 20), external, createdAt)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repo.Add(context.Background(), j))
	return j
}

func (suite *GetJobsQueryHandlerTestSuite) TestHandle_WindowAndOrder() {
	feb := suite.addJob(1, false, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	mar := suite.addJob(1, false, time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC))
	suite.addJob(1, false, time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC))
	suite.addJob(1, false, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))

	jobs, err := suite.handler.Handle(context.Background(), queries.NewGetJobsQuery(false, suite.now))

	suite.Require().NoError(err)
	suite.Require().Len(jobs, 2)
	suite.Equal(mar.ID(), jobs[0].ID)
	suite.Equal(feb.ID(), jobs[1].ID)
}

func (suite *GetJobsQueryHandlerTestSuite) TestHandle_ExternalFilter() {
	internal := suite.addJob(1, false, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	external := suite.addJob(2, true, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC))

	onlyInternal, err := suite.handler.Handle(context.Background(), queries.NewGetJobsQuery(false, suite.now))
	suite.Require().NoError(err)
	suite.Require().Len(onlyInternal, 1)
	suite.Equal(internal.ID(), onlyInternal[0].ID)

	all, err := suite.handler.Handle(context.Background(), queries.NewGetJobsQuery(true, suite.now))
	suite.Require().NoError(err)
	suite.Require().Len(all, 2)
	suite.Equal(external.ID(), all[0].ID)
	suite.True(all[0].External)
}

func (suite *GetJobsQueryHandlerTestSuite) TestHandle_MapsColumns() {
	ctx := context.Background()
	created := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	j := suite.addJob(7, false, created)

	token := kernel.NewUUID()
	claimed, err := suite.repo.Claim(ctx, j.ID(), false, token, created.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Require().NoError(claimed.Complete(token, job.Authorization{
		Code:          "74123456789012",
		Expiry:        created.AddDate(0, 0, 10),
		VoucherNumber: 1543,
	}, created.Add(2*time.Hour)))
	suite.Require().NoError(suite.repo.Finalize(ctx, claimed, token))

	jobs, err := suite.handler.Handle(ctx, queries.NewGetJobsQuery(false, suite.now))

	suite.Require().NoError(err)
	suite.Require().Len(jobs, 1)
	got := jobs[0]
	suite.Equal(int64(7), got.UserID)
	suite.Equal(3, got.SalePoint)
	suite.Equal("30 14 20 * *", got.Spec)
	suite.Equal(job.Completed, got.Status)
	suite.True(got.ValueToBill.IsEqual(kernel.MustMoney("35120.55")))
	suite.Require().NotNil(got.AuthorizationCode)
	suite.Equal("74123456789012", *got.AuthorizationCode)
	suite.Require().NotNil(got.VoucherNumber)
	suite.Equal(int64(1543), *got.VoucherNumber)
	suite.Empty(got.FailureReason)
}

func (suite *GetJobsQueryHandlerTestSuite) TestHandle_Empty() {
	jobs, err := suite.handler.Handle(context.Background(), queries.NewGetJobsQuery(true, suite.now))

	suite.Require().NoError(err)
	suite.NotNil(jobs)
	suite.Empty(jobs)
}

func (suite *GetJobsQueryHandlerTestSuite) TestHandle_NotConstructed() {
	_, err := suite.handler.Handle(context.Background(), queries.GetJobsQuery{})

	suite.Require().ErrorIs(err, queries.ErrGetJobsQueryIsNotConstructed)
}

func TestGetJobsQueryHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(GetJobsQueryHandlerTestSuite))
}

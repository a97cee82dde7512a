package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	postgres_adapter "billing/internal/adapters/out/postgres"
	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UnitOfWorkIntegrationTestSuite runs the unit of work and the job repository
// against a real PostgreSQL, where conditional updates actually race.
type UnitOfWorkIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(postgres_adapter.Migrate(db, true))
	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE jobs, facturacion_users RESTART IDENTITY").Error)
}

func (suite *UnitOfWorkIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *UnitOfWorkIntegrationTestSuite) newJob() *job.Job {
	j, err := job.NewJob(1, 2, kernel.MustMoney("41000.10"), schedule.MustSpec(5, 9, 12), false, time.Now().UTC())
	suite.Require().NoError(err)
	return j
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionLifecycle() {
	ctx := context.Background()
	uow := suite.factory.Create()

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.Begin(ctx), "Begin twice does not nest")
	suite.Require().NoError(uow.Commit(ctx))

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.Rollback(ctx))

	suite.Require().Error(uow.Commit(ctx), "Commit without Begin")
	suite.Require().Error(uow.Rollback(ctx), "Rollback without Begin")
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_CommitPersistsWholePlan() {
	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))

	jobs := []*job.Job{suite.newJob(), suite.newJob(), suite.newJob()}
	for _, j := range jobs {
		suite.Require().NoError(uow.JobRepository().Add(ctx, j))
	}
	suite.Require().NoError(uow.Commit(ctx))

	pending, err := suite.factory.Create().JobRepository().FindAllPending(ctx)
	suite.Require().NoError(err)
	suite.Len(pending, 3)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_RollbackDiscardsWholePlan() {
	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))

	first := suite.newJob()
	suite.Require().NoError(uow.JobRepository().Add(ctx, first))
	suite.Require().NoError(uow.JobRepository().Add(ctx, suite.newJob()))
	suite.Require().NoError(uow.Rollback(ctx))

	_, err := suite.factory.Create().JobRepository().Get(ctx, first.ID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestJobRepository_ConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	j := suite.newJob()
	suite.Require().NoError(suite.factory.Create().JobRepository().Add(ctx, j))

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()

			uow := suite.factory.Create()
			if err := uow.Begin(ctx); err != nil {
				return
			}
			defer func() { _ = uow.Rollback(ctx) }()

			_, err := uow.JobRepository().Claim(ctx, j.ID(), false, kernel.NewUUID(), time.Now().UTC())
			if err == nil {
				err = uow.Commit(ctx)
			}

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				losers++
			}
		}()
	}
	wg.Wait()

	suite.Equal(1, winners)
	suite.Equal(attempts-1, losers)

	stored, err := suite.factory.Create().JobRepository().Get(ctx, j.ID())
	suite.Require().NoError(err)
	suite.Equal(job.InProgress, stored.Status())
}

func TestUnitOfWorkIntegrationSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"billing/internal/core/application/usecases/commands"
	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type MockJobRepository struct{ mock.Mock }

func (m *MockJobRepository) Add(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJobRepository) Get(ctx context.Context, id int64) (*job.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*job.Job)
	return j, args.Error(1)
}

func (m *MockJobRepository) FindAllPending(ctx context.Context) ([]*job.Job, error) {
	args := m.Called(ctx)
	jobs, _ := args.Get(0).([]*job.Job)
	return jobs, args.Error(1)
}

func (m *MockJobRepository) FindInProgressClaimedBefore(ctx context.Context, t time.Time) ([]*job.Job, error) {
	args := m.Called(ctx, t)
	jobs, _ := args.Get(0).([]*job.Job)
	return jobs, args.Error(1)
}

func (m *MockJobRepository) Claim(
	ctx context.Context,
	id int64,
	retry bool,
	token kernel.UUID,
	now time.Time,
) (*job.Job, error) {
	args := m.Called(ctx, id, retry, token, now)
	j, _ := args.Get(0).(*job.Job)
	if j != nil && args.Error(1) == nil {
		// like the store, hand back the job claimed under the caller's token
		if err := j.Claim(token, retry, now); err != nil {
			return nil, err
		}
	}
	return j, args.Error(1)
}

func (m *MockJobRepository) Finalize(ctx context.Context, j *job.Job, token kernel.UUID) error {
	args := m.Called(ctx, j, token)
	return args.Error(0)
}

func (m *MockJobRepository) UpdateMany(
	ctx context.Context,
	ids []int64,
	status job.Status,
	reason string,
	now time.Time,
) ([]int64, error) {
	args := m.Called(ctx, ids, status, reason, now)
	affected, _ := args.Get(0).([]int64)
	return affected, args.Error(1)
}

func (m *MockJobRepository) DeleteByUser(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

// MockJobUoW records the transaction calls and hands out one repository.
type MockJobUoW struct {
	mock.Mock
	repo ports.JobRepository
}

func (m *MockJobUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJobUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJobUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJobUoW) JobRepository() ports.JobRepository {
	return m.repo
}

type MockJobUoWFactory struct{ mock.Mock }

func (m *MockJobUoWFactory) Create() commands.JobUoW {
	args := m.Called()
	return args.Get(0).(commands.JobUoW)
}

// newPermissiveUoW returns a factory whose units of work always begin and
// commit, so a test can focus on the repository expectations.
func newPermissiveUoW(repo *MockJobRepository) (*MockJobUoWFactory, *MockJobUoW) {
	uow := &MockJobUoW{repo: repo}
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Commit", mock.Anything).Return(nil)
	uow.On("Rollback", mock.Anything).Return(nil)

	factory := new(MockJobUoWFactory)
	factory.On("Create").Return(uow)
	return factory, uow
}

type MockSecretsClient struct{ mock.Mock }

func (m *MockSecretsClient) GetCredentials(ctx context.Context, userID int64) (ports.Credentials, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(ports.Credentials), args.Error(1)
}

type MockUserDirectory struct{ mock.Mock }

func (m *MockUserDirectory) GetUserByID(ctx context.Context, userID int64) (ports.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(ports.User), args.Error(1)
}

type MockInvoicingClient struct{ mock.Mock }

func (m *MockInvoicingClient) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (ports.InvoiceResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.InvoiceResponse), args.Error(1)
}

type MockJobScheduler struct{ mock.Mock }

func (m *MockJobScheduler) Register(jobID int64, spec schedule.Spec, callback ports.JobCallback) (time.Time, error) {
	args := m.Called(jobID, spec, callback)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockJobScheduler) Cancel(jobID int64) bool {
	args := m.Called(jobID)
	return args.Bool(0)
}

type MockJobExecutor struct{ mock.Mock }

func (m *MockJobExecutor) Handle(ctx context.Context, cmd commands.ExecuteJobCommand) (commands.Outcome, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.Outcome), args.Error(1)
}

type MockPlanNotifier struct{ mock.Mock }

func (m *MockPlanNotifier) NotifyPlanCreated(ctx context.Context, summary ports.PlanSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

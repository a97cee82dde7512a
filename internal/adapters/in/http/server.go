package http

import (
	"context"
	"net/http"
	"time"

	"billing/internal/core/application/usecases/commands"
	"billing/internal/core/application/usecases/queries"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type (
	PlanCreator interface {
		Handle(ctx context.Context, cmd commands.CreateBillingPlanCommand) (commands.BillingPlanResult, error)
	}
	PlanPreviewer interface {
		Handle(ctx context.Context, query queries.PreviewPlanQuery) (queries.PreviewPlanQueryResponse, error)
	}
	JobLister interface {
		Handle(ctx context.Context, query queries.GetJobsQuery) ([]queries.GetJobsQueryResponse, error)
	}
	JobFailer interface {
		Handle(ctx context.Context, cmd commands.FailJobsCommand) ([]int64, error)
	}
	UserJobsDeleter interface {
		Handle(ctx context.Context, cmd commands.DeleteUserJobsCommand) ([]int64, error)
	}
	JobRetrier interface {
		Handle(ctx context.Context, cmd commands.RetryJobCommand) (commands.Outcome, error)
	}
	PlanRecorder interface {
		RecordPlanCreated(invoices int)
	}
)

var _ ServerInterface = (*Server)(nil)

// Server implements the ServerInterface for handling HTTP requests.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	createPlanHandler PlanCreator
	failJobsHandler   JobFailer
	deleteUserHandler UserJobsDeleter
	retryJobHandler   JobRetrier

	// Query handlers
	previewPlanHandler PlanPreviewer
	getJobsHandler     JobLister

	location *time.Location
	clock    func() time.Time
	metrics  PlanRecorder
}

type ServerDeps struct {
	CreatePlan  PlanCreator
	PreviewPlan PlanPreviewer
	GetJobs     JobLister
	FailJobs    JobFailer
	DeleteUser  UserJobsDeleter
	RetryJob    JobRetrier
	Location    *time.Location
	Clock       func() time.Time
	Metrics     PlanRecorder
}

func NewServer(deps ServerDeps) *Server {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Server{
		createPlanHandler:  deps.CreatePlan,
		failJobsHandler:    deps.FailJobs,
		deleteUserHandler:  deps.DeleteUser,
		retryJobHandler:    deps.RetryJob,
		previewPlanHandler: deps.PreviewPlan,
		getJobsHandler:     deps.GetJobs,
		location:           deps.Location,
		clock:              deps.Clock,
		metrics:            deps.Metrics,
	}
}

// CreateBillingPlan handles POST /api/bill - persists a plan and arms its timers.
func (s *Server) CreateBillingPlan(ctx echo.Context) error {
	var req BillingPlanRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	minTotal, maxTotal, err := parseTotals(req.MinTotal.String(), req.MaxTotal.String())
	if err != nil {
		return errorResponse(ctx, err)
	}

	cmd, err := commands.NewCreateBillingPlanCommand(commands.CreateBillingPlanParams{
		UserID:       req.UserID,
		StartDate:    s.localDate(req.StartDate),
		EndDate:      s.localDate(req.EndDate),
		InvoiceCount: req.InvoiceCount,
		MinTotal:     minTotal,
		MaxTotal:     maxTotal,
		StartHour:    req.StartHour,
		EndHour:      req.EndHour,
	})
	if err != nil {
		return errorResponse(ctx, err)
	}

	result, err := s.createPlanHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return errorResponse(ctx, err)
	}

	if s.metrics != nil {
		s.metrics.RecordPlanCreated(len(result.Jobs))
	}

	response := BillingPlan{
		UserID: result.UserID,
		Total:  result.Total.String(),
		Jobs:   make([]PlannedJob, len(result.Jobs)),
	}
	for i, pj := range result.Jobs {
		response.Jobs[i] = PlannedJob{
			JobID:    pj.JobID,
			Amount:   pj.Amount.String(),
			Schedule: pj.Spec.String(),
			DueAt:    optionalTime(pj.DueAt),
		}
	}

	return ctx.JSON(http.StatusCreated, response)
}

// PreviewBillingPlan handles POST /api/bill/preview - draws a plan without saving it.
func (s *Server) PreviewBillingPlan(ctx echo.Context) error {
	var req PreviewRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	minTotal, maxTotal, err := parseTotals(req.MinTotal.String(), req.MaxTotal.String())
	if err != nil {
		return errorResponse(ctx, err)
	}

	query, err := queries.NewPreviewPlanQuery(queries.PreviewPlanParams{
		StartDate:    s.localDate(req.StartDate),
		EndDate:      s.localDate(req.EndDate),
		InvoiceCount: req.InvoiceCount,
		MinTotal:     minTotal,
		MaxTotal:     maxTotal,
		StartHour:    req.StartHour,
		EndHour:      req.EndHour,
	})
	if err != nil {
		return errorResponse(ctx, err)
	}

	preview, err := s.previewPlanHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return errorResponse(ctx, err)
	}

	response := PlanPreview{
		Total: preview.Total.String(),
		Items: make([]PreviewItem, len(preview.Items)),
	}
	for i, item := range preview.Items {
		response.Items[i] = PreviewItem{
			Amount:   item.Amount.String(),
			Schedule: item.Spec,
			DueAt:    optionalTime(item.DueAt),
			When:     item.When,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// GetJobs handles GET /api/jobs - lists last and current month's jobs.
func (s *Server) GetJobs(ctx echo.Context, params GetJobsParams) error {
	external := params.External != nil && *params.External
	query := queries.NewGetJobsQuery(external, s.clock().In(s.location))

	jobs, err := s.getJobsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return errorResponse(ctx, err)
	}

	response := make([]Job, len(jobs))
	for i, j := range jobs {
		response[i] = Job{
			ID:                j.ID,
			UserID:            j.UserID,
			SalePoint:         j.SalePoint,
			Schedule:          j.Spec,
			Status:            j.Status.String(),
			ValueToBill:       j.ValueToBill.String(),
			External:          j.External,
			AuthorizationCode: j.AuthorizationCode,
			VoucherNumber:     j.VoucherNumber,
			FailureReason:     j.FailureReason,
			CreatedAt:         j.CreatedAt.In(s.location),
			UpdatedAt:         j.UpdatedAt.In(s.location),
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// FailJobs handles POST /api/jobs/fail.
func (s *Server) FailJobs(ctx echo.Context) error {
	var req FailJobsRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewFailJobsCommand(req.IDs, req.Reason)
	if err != nil {
		return errorResponse(ctx, err)
	}

	affected, err := s.failJobsHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, JobIDs{IDs: nonNil(affected)})
}

// DeleteUserJobs handles DELETE /api/jobs/{userId}.
func (s *Server) DeleteUserJobs(ctx echo.Context, userID int64) error {
	cmd, err := commands.NewDeleteUserJobsCommand(userID)
	if err != nil {
		return errorResponse(ctx, err)
	}

	deleted, err := s.deleteUserHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, JobIDs{IDs: nonNil(deleted)})
}

// RetryJob handles POST /api/jobs/{jobId}/retry - runs one attempt now.
func (s *Server) RetryJob(ctx echo.Context, jobID int64) error {
	cmd, err := commands.NewRetryJobCommand(jobID)
	if err != nil {
		return errorResponse(ctx, err)
	}

	outcome, err := s.retryJobHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return errorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, ExecutionOutcome{
		JobID:             outcome.JobID,
		Status:            outcome.Status.String(),
		AuthorizationCode: outcome.AuthorizationCode,
		VoucherNumber:     outcome.VoucherNumber,
		FailureReason:     outcome.FailureReason,
		DurationMs:        outcome.Duration.Milliseconds(),
	})
}

// localDate reads a calendar date in the operating timezone.
func (s *Server) localDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.location)
	return &t
}

func parseTotals(minRaw, maxRaw string) (kernel.Money, kernel.Money, error) {
	if minRaw == "" {
		return kernel.Money{}, kernel.Money{}, errs.NewValueIsRequiredError("minTotal")
	}
	if maxRaw == "" {
		return kernel.Money{}, kernel.Money{}, errs.NewValueIsRequiredError("maxTotal")
	}

	minTotal, err := kernel.MoneyFromString(minRaw)
	if err != nil {
		return kernel.Money{}, kernel.Money{}, err
	}
	maxTotal, err := kernel.MoneyFromString(maxRaw)
	if err != nil {
		return kernel.Money{}, kernel.Money{}, err
	}
	return minTotal, maxTotal, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/ports"
)

const (
	// DefaultInvoicingTimeout bounds a single invoicing call.
	DefaultInvoicingTimeout = 30 * time.Second

	invoiceDateLayout = "20060102"
)

var (
	// ErrCredentialsUnavailable is returned when the emitter certificate cannot be read.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")

	// ErrUserUnavailable is returned when the emitter cannot be resolved.
	ErrUserUnavailable = errors.New("user unavailable")

	// ErrInvoicingService is returned when the invoicing call fails or is rejected.
	ErrInvoicingService = errors.New("invoicing service error")
)

// Outcome is the terminal result of one execution attempt.
type Outcome struct {
	JobID             int64
	Status            job.Status
	AuthorizationCode string
	VoucherNumber     int64
	FailureReason     string
	Duration          time.Duration
}

// Succeeded reports whether the attempt completed the job.
func (o Outcome) Succeeded() bool {
	return o.Status == job.Completed
}

// ExecuteJobCommandHandler performs one invoice emission.
//
// The attempt claims the job in its own short transaction, talks to the
// secrets store, the user directory and the invoicing service with no
// transaction open, and writes the terminal status in a second transaction
// that only succeeds while the claim is still held. A failed attempt always
// ends Failed, never back in Pending.
type ExecuteJobCommandHandler struct {
	uowFactory JobUoWFactory
	secrets    ports.SecretsClient
	users      ports.UserDirectory
	invoicing  ports.InvoicingClient
	clock      ports.Clock
	loc        *time.Location
	timeout    time.Duration
	logger     *slog.Logger
}

type ExecuteJobDeps struct {
	UoWFactory JobUoWFactory
	Secrets    ports.SecretsClient
	Users      ports.UserDirectory
	Invoicing  ports.InvoicingClient
	Clock      ports.Clock
	Location   *time.Location
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewExecuteJobCommandHandler(deps ExecuteJobDeps) ExecuteJobCommandHandler {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultInvoicingTimeout
	}

	return ExecuteJobCommandHandler{
		uowFactory: deps.UoWFactory,
		secrets:    deps.Secrets,
		users:      deps.Users,
		invoicing:  deps.Invoicing,
		clock:      deps.Clock,
		loc:        deps.Location,
		timeout:    deps.Timeout,
		logger:     deps.Logger.With("component", "executor"),
	}
}

// Handle runs the attempt. When the job cannot be claimed it returns a zero
// Outcome and an error wrapping ports.ErrJobNotClaimable, and nothing is
// written. Otherwise the Outcome carries the status that was persisted and
// the error, if any, explains a failure.
func (h ExecuteJobCommandHandler) Handle(ctx context.Context, cmd ExecuteJobCommand) (Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return Outcome{}, err
	}

	started := h.clock.Now()
	token := kernel.NewUUID()
	logger := h.logger.With("jobId", cmd.JobID(), "retry", cmd.Retry())

	var claimed *job.Job
	err := inTx(ctx, h.uowFactory, func(repo ports.JobRepository) error {
		j, claimErr := repo.Claim(ctx, cmd.JobID(), cmd.Retry(), token, started)
		claimed = j
		return claimErr
	})
	if err != nil {
		if errors.Is(err, ports.ErrJobNotClaimable) {
			logger.DebugContext(ctx, "job not claimable", "error", err)
		} else {
			logger.ErrorContext(ctx, "claim failed", "error", err)
		}
		return Outcome{}, err
	}

	auth, attemptErr := h.attempt(ctx, claimed)

	// the terminal state is recorded even if the caller has gone away
	writeCtx := context.WithoutCancel(ctx)
	finishedAt := h.clock.Now()
	if attemptErr == nil {
		err = claimed.Complete(token, auth, finishedAt)
	} else {
		err = claimed.Fail(token, attemptErr.Error(), finishedAt)
	}
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		JobID:         claimed.ID(),
		Status:        claimed.Status(),
		FailureReason: claimed.FailureReason(),
		Duration:      finishedAt.Sub(started),
	}
	if a := claimed.Authorization(); a != nil {
		outcome.AuthorizationCode = a.Code
		outcome.VoucherNumber = a.VoucherNumber
	}

	err = inTx(writeCtx, h.uowFactory, func(repo ports.JobRepository) error {
		return repo.Finalize(writeCtx, claimed, token)
	})
	if err != nil {
		// the job stays InProgress until the reconciler marks it interrupted
		logger.ErrorContext(ctx, "finalize failed", "status", outcome.Status, "error", err)
		return outcome, fmt.Errorf("finalize job %d: %w", claimed.ID(), err)
	}

	if attemptErr != nil {
		logger.WarnContext(ctx, "invoice failed", "reason", outcome.FailureReason)
		return outcome, attemptErr
	}

	logger.InfoContext(ctx, "invoice authorized",
		"authorizationCode", outcome.AuthorizationCode,
		"voucherNumber", outcome.VoucherNumber,
		"amount", claimed.ValueToBill().String())
	return outcome, nil
}

func (h ExecuteJobCommandHandler) attempt(ctx context.Context, j *job.Job) (job.Authorization, error) {
	creds, err := h.secrets.GetCredentials(ctx, j.UserID())
	if err != nil {
		return job.Authorization{}, fmt.Errorf("%w: %w", ErrCredentialsUnavailable, err)
	}

	user, err := h.users.GetUserByID(ctx, j.UserID())
	if err != nil {
		return job.Authorization{}, fmt.Errorf("%w: %w", ErrUserUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.invoicing.CreateInvoice(callCtx, ports.InvoiceRequest{
		SalePoint:    j.SalePoint(),
		InvoiceDate:  h.clock.Now().In(h.loc).Format(invoiceDateLayout),
		TotalAmount:  j.ValueToBill(),
		EmitterTaxID: user.TaxID,
		Certificate:  creds.Certificate,
		PrivateKey:   creds.PrivateKey,
	})
	if err != nil {
		return job.Authorization{}, fmt.Errorf("%w: %w", ErrInvoicingService, err)
	}
	if !resp.Success {
		return job.Authorization{}, fmt.Errorf("%w: rejected: %s", ErrInvoicingService, resp.Message)
	}
	if resp.AuthorizationCode == "" {
		return job.Authorization{}, fmt.Errorf("%w: response without authorization code", ErrInvoicingService)
	}

	return job.Authorization{
		Code:          resp.AuthorizationCode,
		Expiry:        resp.AuthorizationExpiry,
		VoucherNumber: resp.VoucherNumber,
	}, nil
}

package ports

import (
	"context"
	"time"

	"billing/internal/core/domain/model/kernel"
)

// User is the emitter context kept by the user directory.
type User struct {
	ID        int64
	TaxID     string
	SalePoint int
	Category  string
	External  bool
	Email     string
}

// UserDirectory resolves emitters. Missing users are errs.ObjectNotFoundError.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID int64) (User, error)
}

// Credentials is the emitter certificate pair used to sign invoicing requests.
type Credentials struct {
	Certificate string
	PrivateKey  string
}

// SecretsClient reads emitter credentials. Missing credentials are
// errs.ObjectNotFoundError.
type SecretsClient interface {
	GetCredentials(ctx context.Context, userID int64) (Credentials, error)
}

// InvoiceRequest is the single-invoice payload sent to the invoicing service.
type InvoiceRequest struct {
	SalePoint    int
	InvoiceDate  string // YYYYMMDD
	TotalAmount  kernel.Money
	EmitterTaxID string
	Certificate  string
	PrivateKey   string
}

// InvoiceResponse is the invoicing service verdict.
type InvoiceResponse struct {
	Success             bool
	AuthorizationCode   string
	AuthorizationExpiry time.Time
	VoucherNumber       int64
	Message             string
}

// InvoicingClient authorizes invoices. Transport failures are returned as
// errors; a rejected invoice is a response with Success=false.
type InvoicingClient interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (InvoiceResponse, error)
}

// PlanEntry describes one scheduled invoice in a plan notification.
type PlanEntry struct {
	JobID  int64
	Amount kernel.Money
	DueAt  time.Time
}

// PlanSummary is sent to operators after a plan is created.
type PlanSummary struct {
	UserID  int64
	TaxID   string
	Total   kernel.Money
	Entries []PlanEntry
}

// PlanNotifier delivers plan summaries. Failures never undo a plan.
type PlanNotifier interface {
	NotifyPlanCreated(ctx context.Context, summary PlanSummary) error
}

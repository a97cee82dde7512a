package http

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openAPISpec []byte

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// GetSwagger returns the validated OpenAPI document served by the API.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPISpec)
		if err != nil {
			swaggerErr = fmt.Errorf("error loading OpenAPI document: %w", err)
			return
		}
		if err = doc.Validate(loader.Context); err != nil {
			swaggerErr = fmt.Errorf("invalid OpenAPI document: %w", err)
			return
		}

		swaggerDoc = doc
		swag.Register(swag.Name, swaggerJSON{doc: doc})
	})
	return swaggerDoc, swaggerErr
}

// swaggerJSON feeds the swagger UI with the embedded document.
type swaggerJSON struct {
	doc *openapi3.T
}

func (s swaggerJSON) ReadDoc() string {
	b, err := json.Marshal(s.doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Request and response bodies, named after the schemas in openapi.yaml.

type PreviewRequest struct {
	StartDate    *openapi_types.Date `json:"startDate,omitempty"`
	EndDate      *openapi_types.Date `json:"endDate,omitempty"`
	InvoiceCount int                 `json:"invoiceCount"`
	MinTotal     json.Number         `json:"minTotal"`
	MaxTotal     json.Number         `json:"maxTotal"`
	StartHour    *int                `json:"startHour,omitempty"`
	EndHour      *int                `json:"endHour,omitempty"`
}

type BillingPlanRequest struct {
	PreviewRequest
	UserID int64 `json:"userId"`
}

type PlannedJob struct {
	JobID    int64      `json:"jobId"`
	Amount   string     `json:"amount"`
	Schedule string     `json:"schedule"`
	DueAt    *time.Time `json:"dueAt,omitempty"`
}

type BillingPlan struct {
	UserID int64        `json:"userId"`
	Total  string       `json:"total"`
	Jobs   []PlannedJob `json:"jobs"`
}

type PreviewItem struct {
	Amount   string     `json:"amount"`
	Schedule string     `json:"schedule"`
	DueAt    *time.Time `json:"dueAt,omitempty"`
	When     string     `json:"when,omitempty"`
}

type PlanPreview struct {
	Total string        `json:"total"`
	Items []PreviewItem `json:"items"`
}

type Job struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	SalePoint         int       `json:"salePoint"`
	Schedule          string    `json:"schedule"`
	Status            string    `json:"status"`
	ValueToBill       string    `json:"valueToBill"`
	External          bool      `json:"external"`
	AuthorizationCode *string   `json:"authorizationCode,omitempty"`
	VoucherNumber     *int64    `json:"voucherNumber,omitempty"`
	FailureReason     string    `json:"failureReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type GetJobsParams struct {
	External *bool `form:"external,omitempty" json:"external,omitempty"`
}

type FailJobsRequest struct {
	IDs    []int64 `json:"ids"`
	Reason string  `json:"reason,omitempty"`
}

type JobIDs struct {
	IDs []int64 `json:"ids"`
}

type ExecutionOutcome struct {
	JobID             int64  `json:"jobId"`
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
	VoucherNumber     int64  `json:"voucherNumber,omitempty"`
	FailureReason     string `json:"failureReason,omitempty"`
	DurationMs        int64  `json:"durationMs,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

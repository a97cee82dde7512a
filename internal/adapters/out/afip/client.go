// Package afip talks to the invoicing gateway that fronts the AFIP electronic
// invoicing web services. Every invoice emitted here is a Factura C to a final
// consumer.
package afip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"billing/internal/core/ports"

	"golang.org/x/time/rate"
)

const (
	invoicePath = "/afip/invoice"

	voucherTypeFacturaC   = 11
	documentTypeFinal     = 99
	receiverVATFinal      = 5
	conceptProducts       = 1
	currencyPesos         = "PES"
	expiryLayout          = "20060102"
	maxErrorBodyBytes     = 4 << 10
	DefaultTimeout        = 30 * time.Second
	DefaultRatePerMinute  = 30
	defaultLimiterBurst   = 1
	anonymousCustomerCUIT = "0"
)

// ErrUnexpectedResponse is returned when the gateway answers with something
// that is not an invoice verdict.
var ErrUnexpectedResponse = errors.New("unexpected invoicing gateway response")

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
	Location      *time.Location
}

// Client implements ports.InvoicingClient. Calls are throttled with a token
// bucket shared by every caller of the same Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	loc        *time.Location
	logger     *slog.Logger
}

var _ ports.InvoicingClient = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), defaultLimiterBurst),
		loc:        cfg.Location,
		logger:     logger.With("component", "afip-client"),
	}
}

type invoiceRequest struct {
	SalePoint         int         `json:"puntoVenta"`
	VoucherType       int         `json:"tipoComprobante"`
	InvoiceDate       string      `json:"fechaComprobante"`
	CustomerCUIT      string      `json:"cuitCliente"`
	DocumentType      int         `json:"tipoDocumento"`
	ReceiverVATStatus int         `json:"condicionIvaReceptor"`
	Concept           int         `json:"concepto"`
	NetAmount         json.Number `json:"importeNetoGravado"`
	VATAmount         json.Number `json:"importeIva"`
	TotalAmount       json.Number `json:"importeTotal"`
	CurrencyID        string      `json:"monedaId"`
	CurrencyQuotation int         `json:"cotizacionMoneda"`
	EmitterCUIT       string      `json:"cuitEmisor"`
	Certificate       string      `json:"certificado"`
	PrivateKey        string      `json:"clavePrivada"`
}

type invoiceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		CAE           string `json:"cae"`
		CAEExpiry     string `json:"caeFchVto"`
		VoucherNumber int64  `json:"numeroComprobante"`
	} `json:"data"`
}

// CreateInvoice requests authorization for one invoice. A rejected invoice is
// returned as a response with Success=false; transport failures and
// unreadable answers are errors.
func (c *Client) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (ports.InvoiceResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("wait for invoicing rate limit: %w", err)
	}

	total := json.Number(req.TotalAmount.String())
	body, err := json.Marshal(invoiceRequest{
		SalePoint:         req.SalePoint,
		VoucherType:       voucherTypeFacturaC,
		InvoiceDate:       req.InvoiceDate,
		CustomerCUIT:      anonymousCustomerCUIT,
		DocumentType:      documentTypeFinal,
		ReceiverVATStatus: receiverVATFinal,
		Concept:           conceptProducts,
		NetAmount:         total,
		VATAmount:         "0",
		TotalAmount:       total,
		CurrencyID:        currencyPesos,
		CurrencyQuotation: 1,
		EmitterCUIT:       req.EmitterTaxID,
		Certificate:       req.Certificate,
		PrivateKey:        req.PrivateKey,
	})
	if err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("encode invoice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+invoicePath, bytes.NewReader(body))
	if err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("build invoice request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("send invoice request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("read invoice response: %w", err)
	}

	var decoded invoiceResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ports.InvoiceResponse{}, fmt.Errorf("%w: status %d: %s",
			ErrUnexpectedResponse, resp.StatusCode, truncate(raw))
	}

	if resp.StatusCode >= http.StatusBadRequest || !decoded.Success {
		c.logger.WarnContext(ctx, "invoice rejected",
			"status", resp.StatusCode,
			"salePoint", req.SalePoint,
			"message", decoded.Message)
		message := decoded.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return ports.InvoiceResponse{Success: false, Message: message}, nil
	}

	if decoded.Data == nil || decoded.Data.CAE == "" {
		return ports.InvoiceResponse{}, fmt.Errorf("%w: success without authorization code", ErrUnexpectedResponse)
	}

	out := ports.InvoiceResponse{
		Success:           true,
		AuthorizationCode: decoded.Data.CAE,
		VoucherNumber:     decoded.Data.VoucherNumber,
		Message:           decoded.Message,
	}
	if decoded.Data.CAEExpiry != "" {
		expiry, err := time.ParseInLocation(expiryLayout, decoded.Data.CAEExpiry, c.loc)
		if err != nil {
			c.logger.WarnContext(ctx, "unparsable authorization expiry", "value", decoded.Data.CAEExpiry)
		} else {
			out.AuthorizationExpiry = expiry
		}
	}

	return out, nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(raw))
}

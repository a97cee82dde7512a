// Package notify delivers plan summaries to operators, by Brevo transactional
// email or, when no API key is configured, to the log.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"
	"time"

	"billing/internal/core/ports"

	brevo "github.com/getbrevo/brevo-go/lib"
)

const (
	DefaultBrevoURL = "https://api.brevo.com/v3"
	defaultTimeout  = 10 * time.Second
	dueLayout       = "02/01/2006 15:04"
)

var summaryTemplate = template.Must(template.New("summary").Parse(
	`<h2>Plan de facturación para {{.TaxID}}</h2>
<p>Total: ${{.Total}} en {{len .Rows}} facturas</p>
<table>
<tr><th>Job</th><th>Monto</th><th>Fecha</th></tr>
{{range .Rows}}<tr><td>{{.JobID}}</td><td>${{.Amount}}</td><td>{{.DueAt}}</td></tr>
{{end}}</table>`))

type BrevoConfig struct {
	// URL is the API base path. Empty means DefaultBrevoURL.
	URL    string
	APIKey string
	From   string
	To     []string
}

// BrevoNotifier implements ports.PlanNotifier over Brevo transactional email.
type BrevoNotifier struct {
	cfg    BrevoConfig
	loc    *time.Location
	emails *brevo.TransactionalEmailsApiService
}

var _ ports.PlanNotifier = (*BrevoNotifier)(nil)

func NewBrevoNotifier(cfg BrevoConfig, loc *time.Location) *BrevoNotifier {
	if cfg.URL == "" {
		cfg.URL = DefaultBrevoURL
	}

	apiCfg := brevo.NewConfiguration()
	apiCfg.BasePath = strings.TrimRight(cfg.URL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	apiCfg.AddDefaultHeader("api-key", cfg.APIKey)

	return &BrevoNotifier{
		cfg:    cfg,
		loc:    loc,
		emails: brevo.NewAPIClient(apiCfg).TransactionalEmailsApi,
	}
}

func (n *BrevoNotifier) NotifyPlanCreated(ctx context.Context, summary ports.PlanSummary) error {
	content, err := renderSummary(summary, n.loc)
	if err != nil {
		return err
	}

	to := make([]brevo.SendSmtpEmailTo, 0, len(n.cfg.To))
	for _, addr := range n.cfg.To {
		to = append(to, brevo.SendSmtpEmailTo{Email: addr})
	}

	_, resp, err := n.emails.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Name: "Facturación", Email: n.cfg.From},
		To:          to,
		Subject:     fmt.Sprintf("Plan de facturación %s: $%s", summary.TaxID, summary.Total),
		HtmlContent: content,
	})
	if err != nil {
		var apiErr brevo.GenericSwaggerError
		if errors.As(err, &apiErr) && resp != nil {
			return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(apiErr.Body())))
		}
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type summaryRow struct {
	JobID  int64
	Amount string
	DueAt  string
}

func renderSummary(summary ports.PlanSummary, loc *time.Location) (string, error) {
	entries := slices.Clone(summary.Entries)
	slices.SortFunc(entries, func(a, b ports.PlanEntry) int {
		return a.DueAt.Compare(b.DueAt)
	})

	rows := make([]summaryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, summaryRow{
			JobID:  e.JobID,
			Amount: e.Amount.String(),
			DueAt:  e.DueAt.In(loc).Format(dueLayout),
		})
	}

	var buf bytes.Buffer
	err := summaryTemplate.Execute(&buf, struct {
		TaxID string
		Total string
		Rows  []summaryRow
	}{summary.TaxID, summary.Total.String(), rows})
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// Package metrics exposes the scheduler's Prometheus metrics on /metrics.
//
// Metrics:
//   - billing_job_executions_total{status}: finished execution attempts by
//     terminal status ("Completed", "Failed") or "skipped" when the attempt
//     could not claim the job
//   - billing_job_execution_seconds: duration of claimed attempts
//   - billing_timers_fired_total: one-shot timers that reached their occurrence
//   - billing_timers_pending: armed timers
//   - billing_reconciliation_jobs_total{class}: Pending jobs seen by the
//     reconciler by classification, plus "interrupted" claims
//   - billing_reconciliation_seconds: duration of reconciliation passes
//   - billing_plan_invoices_total: jobs created by billing plans
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billing"

// Collector owns a private registry so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	executions        *prometheus.CounterVec
	executionDuration prometheus.Histogram
	timersFired       prometheus.Counter
	reconciled        *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	planInvoices      prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_executions_total",
			Help:      "Execution attempts by outcome",
		}, []string{"status"}),
		executionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_execution_seconds",
			Help:      "Duration of claimed execution attempts in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		timersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "One-shot timers that reached their occurrence",
		}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_jobs_total",
			Help:      "Jobs handled by reconciliation passes by classification",
		}, []string{"class"}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_seconds",
			Help:      "Duration of reconciliation passes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		planInvoices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_invoices_total",
			Help:      "Jobs created by billing plans",
		}),
	}

	c.registry.MustRegister(
		c.executions,
		c.executionDuration,
		c.timersFired,
		c.reconciled,
		c.reconcileDuration,
		c.planInvoices,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordExecution counts an attempt. Skipped attempts have no duration.
func (c *Collector) RecordExecution(status string, d time.Duration) {
	c.executions.WithLabelValues(status).Inc()
	if d > 0 {
		c.executionDuration.Observe(d.Seconds())
	}
}

func (c *Collector) RecordTimerFired() {
	c.timersFired.Inc()
}

// RecordReconciliation adds a pass's counts by class.
func (c *Collector) RecordReconciliation(d time.Duration, counts map[string]int) {
	c.reconcileDuration.Observe(d.Seconds())
	for class, n := range counts {
		if n > 0 {
			c.reconciled.WithLabelValues(class).Add(float64(n))
		}
	}
}

func (c *Collector) RecordPlanCreated(invoices int) {
	c.planInvoices.Add(float64(invoices))
}

// WatchPendingTimers exports pending() as the billing_timers_pending gauge.
func (c *Collector) WatchPendingTimers(pending func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "timers_pending",
		Help:      "Armed one-shot timers",
	}, func() float64 {
		return float64(pending())
	}))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services accept
// a nil *Metrics and skip recording, which keeps unit tests free of registry
// bookkeeping.
type Metrics struct {
	ApprovalsTotal    *prometheus.CounterVec
	RejectionsTotal   *prometheus.CounterVec
	RenewalsTotal     prometheus.Counter
	TransfersTotal    *prometheus.CounterVec
	ApplicationsTotal prometheus.Counter
	PurchasesTotal    prometheus.Counter

	DispatchTotal    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram

	SchedulerCohortSize *prometheus.HistogramVec
	SchedulerFailures   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ApprovalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainflow_approvals_total",
			Help: "Approval attempts by role and outcome",
		}, []string{"role", "outcome"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainflow_rejections_total",
			Help: "Rejection attempts by role and outcome",
		}, []string{"role", "outcome"}),
		RenewalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainflow_renewals_total",
			Help: "Renewal applications accepted",
		}),
		TransfersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainflow_transfers_total",
			Help: "Domain transfer requests by stage",
		}, []string{"stage"}),
		ApplicationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainflow_applications_total",
			Help: "Domain applications submitted",
		}),
		PurchasesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainflow_purchases_total",
			Help: "Domain purchases registered",
		}),
		DispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainflow_notification_dispatch_total",
			Help: "Notification delivery attempts by status",
		}, []string{"status"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "domainflow_notification_dispatch_duration_seconds",
			Help:    "Latency of webhook deliveries",
			Buckets: prometheus.DefBuckets,
		}),
		SchedulerCohortSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainflow_expiry_cohort_size",
			Help:    "Domains selected per expiry threshold sweep",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
		}, []string{"threshold"}),
		SchedulerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainflow_expiry_sweep_failures_total",
			Help: "Expiry sweep failures by threshold and phase",
		}, []string{"threshold", "phase"}),
	}
}

// RecordApproval counts one approval attempt.
func (m *Metrics) RecordApproval(role, outcome string) {
	if m == nil {
		return
	}
	m.ApprovalsTotal.WithLabelValues(role, outcome).Inc()
}

// RecordRejection counts one rejection attempt.
func (m *Metrics) RecordRejection(role, outcome string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(role, outcome).Inc()
}

// RecordApplication counts one accepted domain application.
func (m *Metrics) RecordApplication() {
	if m == nil {
		return
	}
	m.ApplicationsTotal.Inc()
}

// RecordRenewal counts one accepted renewal application.
func (m *Metrics) RecordRenewal() {
	if m == nil {
		return
	}
	m.RenewalsTotal.Inc()
}

// RecordTransfer counts one transfer event; stage is "requested" or
// "approved".
func (m *Metrics) RecordTransfer(stage string) {
	if m == nil {
		return
	}
	m.TransfersTotal.WithLabelValues(stage).Inc()
}

// RecordPurchase counts one registered purchase.
func (m *Metrics) RecordPurchase() {
	if m == nil {
		return
	}
	m.PurchasesTotal.Inc()
}

// RecordDispatch counts one webhook delivery attempt and its latency.
func (m *Metrics) RecordDispatch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(status).Inc()
	m.DispatchDuration.Observe(seconds)
}

// RecordCohort observes the size of one threshold's cohort.
func (m *Metrics) RecordCohort(threshold string, size int) {
	if m == nil {
		return
	}
	m.SchedulerCohortSize.WithLabelValues(threshold).Observe(float64(size))
}

// RecordSweepFailure counts a failed sweep phase for a threshold.
func (m *Metrics) RecordSweepFailure(threshold, phase string) {
	if m == nil {
		return
	}
	m.SchedulerFailures.WithLabelValues(threshold, phase).Inc()
}

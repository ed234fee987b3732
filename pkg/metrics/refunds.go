package metrics

import "github.com/prometheus/client_golang/prometheus"

// Refund processing outcome labels.
const (
	RefundOutcomeSucceeded = "succeeded"
	RefundOutcomeFailed    = "failed"
	RefundOutcomePending   = "pending"
)

// Reconciler resolution labels.
const (
	ReconcileResolvedSucceeded = "succeeded"
	ReconcileResolvedFailed    = "failed"
	ReconcileResolvedLeft      = "left_processing"
)

// RefundMetrics tracks refund gateway outcomes and reconciler resolutions.
type RefundMetrics struct {
	outcomes    *prometheus.CounterVec
	reconciled  *prometheus.CounterVec
	queuedStale prometheus.Gauge
}

// NewRefundMetrics registers the refund metrics on the provided registerer.
func NewRefundMetrics(reg prometheus.Registerer) *RefundMetrics {
	if reg == nil {
		return &RefundMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_process_outcomes",
		Help: "Refund processing results by gateway outcome.",
	}, []string{"outcome"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_reconcile_resolutions",
		Help: "How stale processing refunds were resolved by the reconciler.",
	}, []string{"resolution"})
	queuedStale := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "refund_stale_processing",
		Help: "Stale processing refunds seen by the last reconciler run.",
	})
	reg.MustRegister(outcomes, reconciled, queuedStale)
	return &RefundMetrics{
		outcomes:    outcomes,
		reconciled:  reconciled,
		queuedStale: queuedStale,
	}
}

// IncOutcome counts one refund processing result.
func (r *RefundMetrics) IncOutcome(outcome string) {
	if r == nil || r.outcomes == nil {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReconciled counts one reconciler resolution.
func (r *RefundMetrics) IncReconciled(resolution string) {
	if r == nil || r.reconciled == nil {
		return
	}
	r.reconciled.WithLabelValues(normalizeLabel(resolution)).Inc()
}

// SetStaleProcessing records how many stale rows the reconciler picked up.
func (r *RefundMetrics) SetStaleProcessing(count int) {
	if r == nil || r.queuedStale == nil {
		return
	}
	r.queuedStale.Set(float64(count))
}

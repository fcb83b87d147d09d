package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AutoMatchMetrics records per-batch reconciliation outcomes.
type AutoMatchMetrics struct {
	matched    prometheus.Counter
	unmatched  prometheus.Counter
	failed     prometheus.Counter
	confidence prometheus.Histogram
}

// NewAutoMatchMetrics registers the auto-match metrics on the provided registerer.
func NewAutoMatchMetrics(reg prometheus.Registerer) *AutoMatchMetrics {
	if reg == nil {
		return &AutoMatchMetrics{}
	}
	matched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automatch_receipts_matched_total",
		Help: "Receipts matched by the auto-match batches.",
	})
	unmatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automatch_receipts_unmatched_total",
		Help: "Receipts left unmatched by the auto-match batches.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automatch_receipts_failed_total",
		Help: "Receipts that errored during auto-match batches.",
	})
	confidence := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "automatch_confidence_score",
		Help:    "Confidence scores of proposed matches.",
		Buckets: []float64{50, 60, 70, 80, 85, 90, 95, 99, 100},
	})
	reg.MustRegister(matched, unmatched, failed, confidence)
	return &AutoMatchMetrics{
		matched:    matched,
		unmatched:  unmatched,
		failed:     failed,
		confidence: confidence,
	}
}

// IncMatched increments the matched receipts counter.
func (a *AutoMatchMetrics) IncMatched() {
	if a == nil || a.matched == nil {
		return
	}
	a.matched.Inc()
}

// IncUnmatched increments the unmatched receipts counter.
func (a *AutoMatchMetrics) IncUnmatched() {
	if a == nil || a.unmatched == nil {
		return
	}
	a.unmatched.Inc()
}

// IncFailed increments the failed receipts counter.
func (a *AutoMatchMetrics) IncFailed() {
	if a == nil || a.failed == nil {
		return
	}
	a.failed.Inc()
}

// ObserveConfidence records the confidence score of a proposed match.
func (a *AutoMatchMetrics) ObserveConfidence(score float64) {
	if a == nil || a.confidence == nil {
		return
	}
	a.confidence.Observe(score)
}

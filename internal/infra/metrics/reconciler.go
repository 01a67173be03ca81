package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcilerChecksTotal,
		reconcilerTickSeconds,
	)
}

var (
	reconcilerChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciler_checks_total",
			Help: "Stale pending payments re-checked by the reconciler, by outcome.",
		},
		[]string{"outcome"},
	)

	reconcilerTickSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_reconciler_tick_seconds",
			Help:    "Duration of a full reconciler scan.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

func IncReconcilerCheck(outcome string) {
	reconcilerChecksTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveReconcilerTick(seconds float64) {
	reconcilerTickSeconds.Observe(seconds)
}

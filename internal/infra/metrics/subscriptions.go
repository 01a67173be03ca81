package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionExtensionsTotal,
		subscriptionDaysGrantedTotal,
		provisionNotifyTotal,
	)
}

var (
	subscriptionExtensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_extensions_total",
			Help: "Successful subscription extensions by tariff.",
		},
		[]string{"tariff"},
	)

	subscriptionDaysGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_days_granted_total",
			Help: "Sum of days added to subscriptions by settled payments.",
		},
	)

	provisionNotifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_notify_total",
			Help: "Provisioning notifications by outcome (ok/error).",
		},
		[]string{"outcome"},
	)
)

func IncSubscriptionExtended(tariff string, days int) {
	subscriptionExtensionsTotal.WithLabelValues(norm(tariff)).Inc()
	subscriptionDaysGrantedTotal.Add(float64(days))
}

func IncProvisionNotify(outcome string) {
	provisionNotifyTotal.WithLabelValues(norm(outcome)).Inc()
}

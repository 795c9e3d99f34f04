package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(subscriptionsReconciledTotal)
}

var subscriptionsReconciledTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscriptions_reconciled_total",
		Help: "Stale active profiles re-checked against the provider, by resulting status.",
	},
	[]string{"status"}, // 'active', 'cancelled', 'unchanged', 'failed'
)

func AddSubscriptionsReconciled(status string, count int) {
	if count <= 0 {
		return
	}
	subscriptionsReconciledTotal.WithLabelValues(norm(status)).Add(float64(count))
}

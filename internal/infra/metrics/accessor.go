package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(accessorActionsTotal) }

var accessorActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accessor_actions_total",
		Help: "WhatsApp assistant actions, by action and result.",
	},
	[]string{"action", "result"}, // result: ok|not_found|inactive|denied|invalid|failed
)

func IncAccessorAction(action, result string) {
	accessorActionsTotal.WithLabelValues(norm(action), norm(result)).Inc()
}

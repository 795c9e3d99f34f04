package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, pushDeliveriesTotal) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Background job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'completed', 'failed'
	)

	pushDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Web push deliveries by result.",
		},
		[]string{"result"}, // sent|gone|failed
	)
)

func IncJob(job, status string) {
	jobsProcessedTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func IncPushDelivery(result string) {
	pushDeliveriesTotal.WithLabelValues(norm(result)).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutSessionsTotal,
		webhookEventsTotal,
		profileWriteFailuresTotal,
		syncTotal,
		portalSessionsTotal,
	)
}

var (
	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_checkout_sessions_total",
			Help: "Checkout sessions requested, by result.",
		},
		[]string{"result"}, // created|failed
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Webhook deliveries by event type and result.",
		},
		[]string{"type", "result"}, // result: applied|ignored|duplicate|rejected|store_error
	)

	profileWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_profile_write_failures_total",
			Help: "Profile updates that failed after the provider state was known.",
		},
		[]string{"source"}, // webhook|sync|reconcile
	)

	syncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_sync_total",
			Help: "Manual sync outcomes.",
		},
		[]string{"outcome"}, // activated|refreshed|no_customer|no_subscription|busy|limited|failed
	)

	portalSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_portal_sessions_total",
			Help: "Billing portal sessions requested, by result.",
		},
		[]string{"result"},
	)
)

func IncCheckout(result string) {
	checkoutSessionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(result)).Inc()
}

func IncProfileWriteFailure(source string) {
	profileWriteFailuresTotal.WithLabelValues(norm(source)).Inc()
}

func IncSync(outcome string) {
	syncTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPortal(result string) {
	portalSessionsTotal.WithLabelValues(norm(result)).Inc()
}

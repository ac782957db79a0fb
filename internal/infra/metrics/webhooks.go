package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhookDeliveriesTotal, webhookAttemptFailures) }

var webhookDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook delivery outcomes (delivered/exhausted/abandoned).",
	},
	[]string{"outcome"},
)

var webhookAttemptFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "webhook_attempt_failures_total",
		Help: "Individual webhook POST attempts that failed.",
	},
)

func IncWebhookDelivery(outcome string) {
	webhookDeliveriesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookAttemptFailure() { webhookAttemptFailures.Inc() }

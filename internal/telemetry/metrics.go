package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook events by provider and terminal processing state",
		},
		[]string{"provider", "state"},
	)

	WebhookRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejections_total",
			Help: "Webhook requests rejected before the event was logged",
		},
		[]string{"provider", "reason"},
	)

	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders materialized from payment webhooks",
		},
		[]string{"provider"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_notifications_total",
			Help: "Order confirmation notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(
		WebhookEventsTotal,
		WebhookRejectionsTotal,
		OrdersCreatedTotal,
		NotificationsTotal,
	)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	WebhookEvents      *prometheus.CounterVec
	OrdersCreated      *prometheus.CounterVec
	ReconcileAnomalies *prometheus.CounterVec
	StockFallbacks     prometheus.Counter
	Notifications      *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by source, event type and outcome.",
		}, []string{"source", "type", "outcome"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders materialized, by source.",
		}, []string{"source"}),
		ReconcileAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_anomalies_total",
			Help: "Settlement data integrity anomalies, by kind.",
		}, []string{"kind"}),
		StockFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_decrement_fallbacks_total",
			Help: "Stock decrements that fell back to read-then-write.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Emails attempted, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.WebhookEvents, m.OrdersCreated, m.ReconcileAnomalies, m.StockFallbacks, m.Notifications)
	}
	return m
}

// Nop returns unregistered collectors.
func Nop() *Metrics {
	return New(nil)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveWebhook(source, eventType string, err error) {
	m.WebhookEvents.WithLabelValues(source, eventType, outcome(err)).Inc()
}

func (m *Metrics) ObserveNotification(kind string, err error) {
	m.Notifications.WithLabelValues(kind, outcome(err)).Inc()
}

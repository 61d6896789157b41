package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveWebhook("payment", "payment_intent.succeeded", nil)
	m.ObserveWebhook("payment", "payment_intent.succeeded", errors.New("boom"))
	m.ObserveNotification("order_confirmation", nil)
	m.StockFallbacks.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("payment", "payment_intent.succeeded", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("payment", "payment_intent.succeeded", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("order_confirmation", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StockFallbacks))

	count, err := testutil.GatherAndCount(reg, "stock_decrement_fallbacks_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

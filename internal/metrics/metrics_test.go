package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExportCounters(t *testing.T) {
	m := New()
	m.OrderCreated("coupon")
	m.OrderCreated("coupon")
	m.Transition("ready", ResultConflict)
	m.WebhookEvent("confirmed")
	m.Notification(ResultError)
	m.ObserveRequest(http.MethodGet, "/api/orders", http.StatusOK, 30*time.Millisecond)

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, mfs, "lunchbox_orders_created_total", "payment_method", "coupon"))
	assert.Equal(t, 1.0, counterValue(t, mfs, "lunchbox_order_transitions_total", "result", ResultConflict))
	assert.Equal(t, 1.0, counterValue(t, mfs, "lunchbox_webhook_events_total", "outcome", "confirmed"))
	assert.Equal(t, 1.0, counterValue(t, mfs, "lunchbox_notifications_total", "result", ResultError))

	mf := findFamily(mfs, "lunchbox_http_request_duration_seconds")
	require.NotNil(t, mf)
	assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderCreated("card")
	m.Transition("ready", ResultOK)
	m.WebhookEvent("ignored")
	m.Notification(ResultOK)
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	assert.Nil(t, m.Registry())
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.WebhookEvent("replay")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(body), `lunchbox_webhook_events_total{outcome="replay"} 1`))
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()

	mf := findFamily(mfs, name)
	require.NotNil(t, mf, "metric %q not found", name)
	for _, metric := range mf.GetMetric() {
		for _, l := range metric.GetLabel() {
			if l.GetName() == label && l.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %q missing label %s=%s", name, label, value)
	return 0
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

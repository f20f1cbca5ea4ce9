// Package metrics содержит счётчики Prometheus сервиса lunchbox.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lunchbox"

// Результаты, используемые в метках.
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics хранит коллекторы сервиса. Nil-значение допустимо и ничего не записывает.
type Metrics struct {
	registry *prometheus.Registry

	ordersCreated   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New регистрирует коллекторы на собственном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by payment method.",
		}, []string{"payment_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transition attempts, by target status and result.",
		}, []string{"to", "result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment gateway callbacks, by processing outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Telegram notifications, by delivery result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersCreated,
		m.transitions,
		m.webhookEvents,
		m.notifications,
		m.requestDuration,
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр коллекторов.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// OrderCreated учитывает созданный заказ.
func (m *Metrics) OrderCreated(method string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalize(method)).Inc()
}

// Transition учитывает попытку смены статуса.
func (m *Metrics) Transition(to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(normalize(to), normalize(result)).Inc()
}

// WebhookEvent учитывает обработанное уведомление платёжного шлюза.
func (m *Metrics) WebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalize(outcome)).Inc()
}

// Notification учитывает попытку отправки сообщения.
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(normalize(result)).Inc()
}

// ObserveRequest записывает длительность HTTP-запроса.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, normalize(route), strconv.Itoa(status)).Observe(d.Seconds())
}

func normalize(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

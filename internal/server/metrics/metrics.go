// Package metrics метрики сервера в формате Prometheus
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bingo"

// Результаты попыток входа
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginError   = "error"
)

// Metrics набор метрик с собственным registry (без глобального состояния)
type Metrics struct {
	registry      *prometheus.Registry
	hashDuration  *prometheus.HistogramVec
	logins        *prometheus.CounterVec
	signups       prometheus.Counter
	sweptSessions prometheus.Counter
	csrfRejects   prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создает и регистрирует метрики
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "password",
			Name:      "operation_duration_seconds",
			Help:      "Duration of password hash and verify operations.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"op"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "The total number of login attempts by result.",
		}, []string{"result"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "The total number of successful signups.",
		}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "swept_total",
			Help:      "The total number of expired sessions removed by the sweeper.",
		}),
		csrfRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "csrf",
			Name:      "rejected_total",
			Help:      "The total number of requests rejected by CSRF validation.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of HTTP requests.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Bucketed histogram of HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		m.hashDuration,
		m.logins,
		m.signups,
		m.sweptSessions,
		m.csrfRejects,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler отдает метрики (GET /metrics)
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry для тестов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePassword совместим с password.ObserveFunc
func (m *Metrics) ObservePassword(op string, elapsed time.Duration) {
	m.hashDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// LoginAttempt учитывает попытку входа
func (m *Metrics) LoginAttempt(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// Signup учитывает регистрацию
func (m *Metrics) Signup() {
	m.signups.Inc()
}

// SessionsSwept учитывает удаленные sweeper'ом сессии
func (m *Metrics) SessionsSwept(n int) {
	m.sweptSessions.Add(float64(n))
}

// CSRFRejected учитывает отклоненный запрос
func (m *Metrics) CSRFRejected() {
	m.csrfRejects.Inc()
}

// HTTPRequest учитывает обработанный запрос
func (m *Metrics) HTTPRequest(method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

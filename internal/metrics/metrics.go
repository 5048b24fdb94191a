// Package metrics exposes Prometheus collectors for the HTTP layer and the gating use cases.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application collectors.
type Metrics struct {
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	VideoRegistrations *prometheus.CounterVec
	AnswerSubmissions  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that are already
// registered are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		VideoRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_registrations_total",
			Help: "Video registrations by outcome",
		}, []string{"outcome"}),

		AnswerSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "answer_submissions_total",
			Help: "Quiz answer submissions by outcome",
		}, []string{"outcome"}),
	}

	m.HTTPRequestTotal = registerOrGet(reg, m.HTTPRequestTotal).(*prometheus.CounterVec)
	m.HTTPRequestDuration = registerOrGet(reg, m.HTTPRequestDuration).(*prometheus.HistogramVec)
	m.VideoRegistrations = registerOrGet(reg, m.VideoRegistrations).(*prometheus.CounterVec)
	m.AnswerSubmissions = registerOrGet(reg, m.AnswerSubmissions).(*prometheus.CounterVec)
	return m
}

// VideoRegistered implements app.Recorder.
func (m *Metrics) VideoRegistered(created bool) {
	outcome := "deduplicated"
	if created {
		outcome = "created"
	}
	m.VideoRegistrations.WithLabelValues(outcome).Inc()
}

// AnswerSubmitted implements app.Recorder.
func (m *Metrics) AnswerSubmitted(outcome string) {
	m.AnswerSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

func registerOrGet(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}

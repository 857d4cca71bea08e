// Package monitoring provides Prometheus metrics for the routing pipeline
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal    *prometheus.CounterVec
	AnswerSource     *prometheus.CounterVec
	TokensConsumed   prometheus.Counter
	CostCents        prometheus.Counter
	PipelineDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalroute",
			Name:      "messages_total",
			Help:      "Messages processed, by domain and tier",
		}, []string{"domain", "tier"}),
		AnswerSource: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalroute",
			Name:      "answer_source_total",
			Help:      "Answers served, by pipeline stage that produced them",
		}, []string{"source"}),
		TokensConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vitalroute",
			Name:      "tokens_consumed_total",
			Help:      "Tokens consumed by paid provider calls",
		}),
		CostCents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vitalroute",
			Name:      "cost_cents_total",
			Help:      "Accumulated provider cost in cents",
		}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitalroute",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end message pipeline latency",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalroute",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, path pattern, and status",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitalroute",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the /metrics scrape handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMessage records one processed message
func (m *Metrics) ObserveMessage(domain, tier, source string, tokens int, costCents float64, took time.Duration) {
	m.MessagesTotal.WithLabelValues(domain, tier).Inc()
	m.AnswerSource.WithLabelValues(source).Inc()
	m.TokensConsumed.Add(float64(tokens))
	m.CostCents.Add(costCents)
	m.PipelineDuration.WithLabelValues(source).Observe(took.Seconds())
}

// ObserveHTTP records one HTTP request
func (m *Metrics) ObserveHTTP(method, path string, status int, took time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

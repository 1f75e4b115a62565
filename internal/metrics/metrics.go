// Package metrics exposes Prometheus metrics for provider runs and the admin API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"provider-sync-service/internal/domain"
)

// Metrics holds the service collectors. It implements service.RunObserver.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal           *prometheus.CounterVec
	runDuration         *prometheus.HistogramVec
	itemsTotal          *prometheus.CounterVec
	thumbsTotal         *prometheus.CounterVec
	lastSuccess         *prometheus.GaugeVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors under namespace on a dedicated registry,
// along with the Go runtime and process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_runs_total",
			Help:      "Total number of provider runs.",
		}, []string{"provider", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_run_duration_seconds",
			Help:      "Histogram of provider run durations.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"provider"}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_items_total",
			Help:      "Items reconciled by provider runs, by outcome.",
		}, []string{"provider", "outcome"}),
		thumbsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_thumbs_total",
			Help:      "Thumbnails handled by provider runs, by outcome.",
		}, []string{"provider", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_last_success_timestamp_seconds",
			Help:      "Start time of the last successful run.",
		}, []string{"provider"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal,
		m.runDuration,
		m.itemsTotal,
		m.thumbsTotal,
		m.lastSuccess,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// ObserveRun records a finished provider run.
func (m *Metrics) ObserveRun(report *domain.RunReport) {
	provider := string(report.Provider)

	status := "success"
	if !report.Succeeded() {
		status = "failure"
	}
	m.runsTotal.WithLabelValues(provider, status).Inc()
	m.runDuration.WithLabelValues(provider).Observe(report.Duration.Seconds())
	if report.Succeeded() {
		m.lastSuccess.WithLabelValues(provider).Set(float64(report.Started.Unix()))
	}

	c := report.Counters
	m.itemsTotal.WithLabelValues(provider, "checked").Add(float64(c.Checked))
	m.itemsTotal.WithLabelValues(provider, "created").Add(float64(c.Created))
	m.itemsTotal.WithLabelValues(provider, "updated").Add(float64(c.Updated))
	m.itemsTotal.WithLabelValues(provider, "errored").Add(float64(c.Errored))
	m.thumbsTotal.WithLabelValues(provider, "checked").Add(float64(c.CheckedThumbs))
	m.thumbsTotal.WithLabelValues(provider, "created").Add(float64(c.CreatedThumbs))
	m.thumbsTotal.WithLabelValues(provider, "updated").Add(float64(c.UpdatedThumbs))
	m.thumbsTotal.WithLabelValues(provider, "errored").Add(float64(c.ErroredThumbs))
}

// RecordRequest records an HTTP request against its route pattern.
func (m *Metrics) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exporting the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

// Package metrics exposes Prometheus counters and histograms for the HTTP
// layer, ledger mutations, advisor calls and the report cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finboard"

// Collector owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	mutations *prometheus.CounterVec

	advisorCalls   *prometheus.CounterVec
	advisorLatency *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	eventsPublished *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route pattern",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"route"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_mutations_total",
				Help:      "Ledger mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
		advisorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "advisor_calls_total",
				Help:      "Advisor calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		advisorLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "advisor_call_duration_seconds",
				Help:      "Advisor call latency by operation",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"operation"},
		),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_hits_total",
			Help:      "Report cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_misses_total",
			Help:      "Report cache misses",
		}),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Ledger events handed to the broker by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
	c.registry.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.mutations,
		c.advisorCalls,
		c.advisorLatency,
		c.cacheHits,
		c.cacheMisses,
		c.eventsPublished,
		prometheus.NewGoCollector(),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveHTTP(route, method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.mutations.WithLabelValues(op, result).Inc()
}

func (c *Collector) ObserveAdvisorCall(op, outcome string, d time.Duration) {
	c.advisorCalls.WithLabelValues(op, outcome).Inc()
	c.advisorLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

func (c *Collector) ObserveEvent(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.eventsPublished.WithLabelValues(kind, result).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

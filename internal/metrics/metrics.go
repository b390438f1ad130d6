// Package metrics exposes Prometheus collectors fed from the event bus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/reqcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gqlengine"

// Collector owns a private registry with the request, field, cache and HTTP
// metrics of the service.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	resolverCalls   prometheus.Histogram
	outputObjects   prometheus.Histogram
	fieldFailures   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    prometheus.Histogram
}

// Option configures a Collector.
type Option func(*Collector)

// WithCacheStats exports the counters of a request cache as gauges.
func WithCacheStats(stats func() reqcache.Stats) Option {
	return func(c *Collector) {
		c.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "entries",
				Help:      "Mapped requests held by the request cache.",
			}, func() float64 { return float64(stats().Entries) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "rotations_total",
				Help:      "Generation rotations of the request cache.",
			}, func() float64 { return float64(stats().Rotations) }),
		)
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(c *Collector) {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// New returns a collector with its metrics registered.
func New(opts ...Option) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "GraphQL requests by operation type and outcome.",
		}, []string{"operation_type", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "GraphQL request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation_type"}),
		resolverCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_resolver_calls",
			Help:      "Resolver calls per request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		outputObjects: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_output_objects",
			Help:      "Output objects per request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		fieldFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "root_field_failures_total",
			Help:      "Top-level fields resolved to null in a non-null position.",
		}, []string{"field"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Request cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		c.requests, c.requestDuration, c.resolverCalls, c.outputObjects,
		c.fieldFailures, c.cacheLookups, c.httpRequests, c.httpDuration,
	)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Subscribe attaches the collector to the global event bus.
func (c *Collector) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) { c.requestFinished(e) }),
		eventbus.Subscribe(func(_ context.Context, e events.FieldFinish) {
			if e.Failed {
				c.fieldFailures.WithLabelValues(e.Field).Inc()
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.CacheLookup) {
			result := "miss"
			if e.Hit {
				result = "hit"
			}
			c.cacheLookups.WithLabelValues(result).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			c.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
			c.httpDuration.Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (c *Collector) requestFinished(e events.GraphQLFinish) {
	op := e.OperationType
	if op == "" {
		op = "unknown"
	}
	status := "ok"
	if len(e.Errors) > 0 {
		status = "error"
	}
	c.requests.WithLabelValues(op, status).Inc()
	c.requestDuration.WithLabelValues(op).Observe(e.Duration.Seconds())
	c.resolverCalls.Observe(float64(e.ResolverCalls))
	c.outputObjects.Observe(float64(e.OutputObjects))
}

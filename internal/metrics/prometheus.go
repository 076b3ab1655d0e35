// Package metrics provides a context-scoped Prometheus collector.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and drives Prometheus metrics. Labels passed at
// registration double as label values at use time.
type Collector interface {
	RegisterCounter(ctx context.Context, name string, labels ...string) (prometheus.Counter, error)
	AddCounter(ctx context.Context, name string, value float64, labels ...string) error
	UnregisterCounter(ctx context.Context, name string, labels ...string) error

	RegisterGauge(ctx context.Context, name string, labels ...string) (prometheus.Gauge, error)
	UnregisterGauge(ctx context.Context, name string, labels ...string) error

	RegisterHistogram(ctx context.Context, name string, labels ...string) (prometheus.Observer, error)
	ObserveHistogram(ctx context.Context, name string, value float64, labels ...string) error
	AddHistogram(ctx context.Context, name string, value float64, labels ...string) error
	UnregisterHistogram(ctx context.Context, name string, labels ...string) error

	MeasureFunctionExecutionTime(ctx context.Context, name string) (func(), error)
	MetricsHandler() http.Handler
}

type contextKey string

// WithMetrics stores a named collector in the context.
func WithMetrics(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contextKey(name), newPrometheusCollector(name))
}

// FromContext returns the named collector from the context, creating a
// detached one when the context carries none.
func FromContext(ctx context.Context, name string) Collector {
	if c, ok := ctx.Value(contextKey(name)).(Collector); ok {
		return c
	}
	return newPrometheusCollector(name)
}

type prometheusCollector struct {
	name       string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
}

func newPrometheusCollector(name string) *prometheusCollector {
	return &prometheusCollector{
		name:       name,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (c *prometheusCollector) fullName(name string) string {
	return c.name + "_" + name
}

func (c *prometheusCollector) RegisterCounter(_ context.Context, name string, labels ...string) (prometheus.Counter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	if _, ok := c.counters[key]; ok {
		return nil, fmt.Errorf("counter %q already registered", key)
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.name,
		Name:      key,
		Help:      fmt.Sprintf("Counter for %s", key),
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		return nil, fmt.Errorf("failed to register counter %q: %w", key, err)
	}
	c.counters[key] = vec
	return vec.WithLabelValues(labels...), nil
}

func (c *prometheusCollector) AddCounter(_ context.Context, name string, value float64, labels ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.counters[c.fullName(name)]
	if !ok {
		return fmt.Errorf("counter %q not registered", c.fullName(name))
	}
	vec.WithLabelValues(labels...).Add(value)
	return nil
}

func (c *prometheusCollector) UnregisterCounter(_ context.Context, name string, _ ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	vec, ok := c.counters[key]
	if !ok {
		return fmt.Errorf("counter %q not registered", key)
	}
	c.registry.Unregister(vec)
	delete(c.counters, key)
	return nil
}

func (c *prometheusCollector) RegisterGauge(_ context.Context, name string, labels ...string) (prometheus.Gauge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	if _, ok := c.gauges[key]; ok {
		return nil, fmt.Errorf("gauge %q already registered", key)
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.name,
		Name:      key,
		Help:      fmt.Sprintf("Gauge for %s", key),
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		return nil, fmt.Errorf("failed to register gauge %q: %w", key, err)
	}
	c.gauges[key] = vec
	return vec.WithLabelValues(labels...), nil
}

func (c *prometheusCollector) UnregisterGauge(_ context.Context, name string, _ ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	vec, ok := c.gauges[key]
	if !ok {
		return fmt.Errorf("gauge %q not registered", key)
	}
	c.registry.Unregister(vec)
	delete(c.gauges, key)
	return nil
}

func (c *prometheusCollector) RegisterHistogram(_ context.Context, name string, labels ...string) (prometheus.Observer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	if _, ok := c.histograms[key]; ok {
		return nil, fmt.Errorf("histogram %q already registered", key)
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.name,
		Name:      key,
		Help:      fmt.Sprintf("Histogram for %s", key),
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		return nil, fmt.Errorf("failed to register histogram %q: %w", key, err)
	}
	c.histograms[key] = vec
	return vec.WithLabelValues(labels...), nil
}

func (c *prometheusCollector) ObserveHistogram(_ context.Context, name string, value float64, labels ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.histograms[c.fullName(name)]
	if !ok {
		return fmt.Errorf("histogram %q not registered", c.fullName(name))
	}
	vec.WithLabelValues(labels...).Observe(value)
	return nil
}

// AddHistogram is an alias for ObserveHistogram kept for callers that
// accumulate durations.
func (c *prometheusCollector) AddHistogram(ctx context.Context, name string, value float64, labels ...string) error {
	return c.ObserveHistogram(ctx, name, value, labels...)
}

func (c *prometheusCollector) UnregisterHistogram(_ context.Context, name string, _ ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.fullName(name)
	vec, ok := c.histograms[key]
	if !ok {
		return fmt.Errorf("histogram %q not registered", key)
	}
	c.registry.Unregister(vec)
	delete(c.histograms, key)
	return nil
}

const functionDurationName = "function_duration_seconds"

// MeasureFunctionExecutionTime starts a timer for the named function
// and returns the stop function that records the observation.
func (c *prometheusCollector) MeasureFunctionExecutionTime(_ context.Context, name string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.name + "_" + functionDurationName
	vec, ok := c.histograms[key]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.name,
			Name:      functionDurationName,
			Help:      "Time spent executing functions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"})
		if err := c.registry.Register(vec); err != nil {
			return nil, fmt.Errorf("failed to register function duration histogram: %w", err)
		}
		c.histograms[key] = vec
	}
	start := time.Now()
	return func() {
		vec.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}, nil
}

// MetricsHandler exposes the collector's registry over HTTP.
func (c *prometheusCollector) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

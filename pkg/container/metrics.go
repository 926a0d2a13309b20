package container

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects and manages component metrics
type MetricsCollector interface {
	RecordRegistration(component, service string, lifetime string)
	RecordResolve(component, service string, duration time.Duration, err error)
	RecordRemoval(component string)
	GetMetrics() map[string]*ComponentMetrics
}

// ComponentMetrics stores metrics for a component
type ComponentMetrics struct {
	Name                string
	Service             string
	Lifetime            string
	Resolves            int
	Failures            int
	LastResolveDuration time.Duration
}

// defaultMetricsCollector keeps a per-component snapshot and feeds prometheus.
// Prometheus series are labelled by service type, component keys can be unbounded.
type defaultMetricsCollector struct {
	metrics map[string]*ComponentMetrics
	mu      sync.RWMutex
	enabled bool

	registrations *prometheus.CounterVec
	resolves      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var _ MetricsCollector = (*defaultMetricsCollector)(nil)

func newMetricsCollector(enabled bool, reg prometheus.Registerer) *defaultMetricsCollector {
	c := &defaultMetricsCollector{
		metrics: make(map[string]*ComponentMetrics),
		enabled: enabled,
	}
	if !enabled {
		return c
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c.registrations = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goioc",
		Name:      "registrations_total",
		Help:      "Components registered, by service type and lifetime.",
	}, []string{"service", "lifetime"}))
	c.resolves = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goioc",
		Name:      "resolves_total",
		Help:      "Resolve calls, by service type and outcome.",
	}, []string{"service", "outcome"}))
	c.duration = registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goioc",
		Name:      "resolve_duration_seconds",
		Help:      "Time spent building or fetching a component.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"service"}))
	return c
}

// registerCollector reuses an identical collector registered by another container
func registerCollector[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return collector
}

func (c *defaultMetricsCollector) ensureMetricExists(component string) *ComponentMetrics {
	m, exists := c.metrics[component]
	if !exists {
		m = &ComponentMetrics{Name: component}
		c.metrics[component] = m
	}
	return m
}

func (c *defaultMetricsCollector) RecordRegistration(component, service string, lifetime string) {
	if !c.enabled {
		return
	}

	c.registrations.WithLabelValues(service, lifetime).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.ensureMetricExists(component)
	m.Service = service
	m.Lifetime = lifetime
}

func (c *defaultMetricsCollector) RecordResolve(component, service string, duration time.Duration, err error) {
	if !c.enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.resolves.WithLabelValues(service, outcome).Inc()
	c.duration.WithLabelValues(service).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.ensureMetricExists(component)
	m.Resolves++
	if err != nil {
		m.Failures++
	}
	m.LastResolveDuration = duration
}

func (c *defaultMetricsCollector) RecordRemoval(component string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metrics, component)
}

func (c *defaultMetricsCollector) reset() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*ComponentMetrics)
}

func (c *defaultMetricsCollector) GetMetrics() map[string]*ComponentMetrics {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Create a copy to avoid races
	result := make(map[string]*ComponentMetrics, len(c.metrics))
	for k, v := range c.metrics {
		copy := *v
		result[k] = &copy
	}

	return result
}

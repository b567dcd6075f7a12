package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Transaction Metrics
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	HistoryDepth        *prometheus.GaugeVec

	// Simulation Metrics
	TicksTotal    *prometheus.CounterVec
	TickDuration  *prometheus.HistogramVec
	GesturesTotal *prometheus.CounterVec

	// Model Metrics
	ModelNodesTotal prometheus.Gauge
	ModelEdgesTotal prometheus.Gauge
	NodeValue       *prometheus.GaugeVec

	// Engine Metrics
	EngineRunning       prometheus.Gauge
	EngineUptimeSeconds prometheus.Gauge
	RuntimeGoroutines   prometheus.Gauge
	RuntimeHeapBytes    prometheus.Gauge

	registry *prometheus.Registry
	// runningSince is zero while the engine is stopped.
	runningSince time.Time
	mu           sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initTransactionMetrics()
	r.initSimulationMetrics()
	r.initModelMetrics()
	r.initEngineMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EngineRunning = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_engine_running",
			Help: "1 while the scheduler loop is running, 0 otherwise",
		},
	)

	r.EngineUptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_engine_uptime_seconds",
			Help: "Seconds since the scheduler loop started, 0 while stopped",
		},
	)

	r.RuntimeGoroutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_runtime_goroutines",
			Help: "Goroutines in the process, including one per scheduler job while running",
		},
	)

	r.RuntimeHeapBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_runtime_heap_alloc_bytes",
			Help: "Bytes of allocated heap objects, dominated by graph snapshots and history",
		},
	)
}

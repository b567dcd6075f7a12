package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordTransaction records a transaction outcome with its duration
func (r *Registry) RecordTransaction(kind, status string, duration time.Duration) {
	r.TransactionsTotal.WithLabelValues(kind, status).Inc()
	r.TransactionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordHistoryDepth records the sizes of the undo and redo stacks
func (r *Registry) RecordHistoryDepth(undo, redo int) {
	r.HistoryDepth.WithLabelValues("undo").Set(float64(undo))
	r.HistoryDepth.WithLabelValues("redo").Set(float64(redo))
}

// RecordTick records a scheduler tick
func (r *Registry) RecordTick(job, status string, duration time.Duration) {
	r.TicksTotal.WithLabelValues(job, status).Inc()
	r.TickDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordGesture records a drag gesture event
func (r *Registry) RecordGesture(outcome string) {
	r.GesturesTotal.WithLabelValues(outcome).Inc()
}

// RecordModel records the size of the loaded diagram
func (r *Registry) RecordModel(nodes, edges int) {
	r.ModelNodesTotal.Set(float64(nodes))
	r.ModelEdgesTotal.Set(float64(edges))
}

// SetNodeValue records the current value of a node
func (r *Registry) SetNodeValue(nodeID string, value float64) {
	r.NodeValue.WithLabelValues(nodeID).Set(value)
}

// RecordEngineState marks the scheduler loop as started or stopped
func (r *Registry) RecordEngineState(running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if running {
		r.runningSince = time.Now()
		r.EngineRunning.Set(1)
		return
	}
	r.runningSince = time.Time{}
	r.EngineRunning.Set(0)
	r.EngineUptimeSeconds.Set(0)
}

// UpdateRuntimeMetrics refreshes engine uptime and Go runtime metrics
func (r *Registry) UpdateRuntimeMetrics() {
	r.mu.RLock()
	since := r.runningSince
	r.mu.RUnlock()

	if since.IsZero() {
		r.EngineUptimeSeconds.Set(0)
	} else {
		r.EngineUptimeSeconds.Set(time.Since(since).Seconds())
	}
	r.RuntimeGoroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.RuntimeHeapBytes.Set(float64(m.HeapAlloc))
}

// Handler serves the registry in the Prometheus exposition format,
// refreshing runtime metrics on every scrape.
func (r *Registry) Handler() http.Handler {
	inner := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.UpdateRuntimeMetrics()
		inner.ServeHTTP(w, req)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_ticks_total",
			Help: "Total number of scheduler ticks by job and outcome",
		},
		[]string{"job", "status"},
	)

	r.TickDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "controlroom_tick_duration_seconds",
			Help:    "Scheduler tick duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"job"},
	)

	r.GesturesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_gestures_total",
			Help: "Total number of drag gesture events by outcome",
		},
		[]string{"outcome"},
	)
}

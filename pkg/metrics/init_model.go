package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initModelMetrics() {
	r.ModelNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_model_nodes_total",
			Help: "Total number of nodes in the loaded diagram",
		},
	)

	r.ModelEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "controlroom_model_edges_total",
			Help: "Total number of edges in the loaded diagram",
		},
	)

	r.NodeValue = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "controlroom_node_value",
			Help: "Current primary value of each numeric node",
		},
		[]string{"node"},
	)
}

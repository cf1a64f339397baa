package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_graph_nodes",
			Help: "Nodes in the active corridor graph",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_graph_edges",
			Help: "Corridors in the active corridor graph",
		},
	)

	r.GraphReloadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_graph_reloads_total",
			Help: "Graph rebuilds by outcome",
		},
		[]string{"status"},
	)

	r.GraphReloadDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corridor_graph_reload_duration_seconds",
			Help:    "Time to rebuild the corridor graph",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	r.GraphLastReloadEpoch = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_graph_last_reload_timestamp_seconds",
			Help: "Unix time of the last successful graph rebuild",
		},
	)
}

func (r *Registry) initIngestMetrics() {
	r.IngestRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_ingest_rows_total",
			Help: "Corridor rows read during graph builds by outcome",
		},
		[]string{"outcome"},
	)

	r.PredictorRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_predictor_requests_total",
			Help: "Metric predictor calls by outcome",
		},
		[]string{"status"},
	)

	r.PredictorDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corridor_predictor_duration_seconds",
			Help:    "Metric predictor call latency",
			Buckets: prometheus.DefBuckets,
		},
	)
}

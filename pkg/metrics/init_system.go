package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_uptime_seconds",
			Help: "Seconds since corridord started",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_goroutines",
			Help: "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_memory_alloc_bytes",
			Help: "Heap bytes in use, including the loaded corridor graph",
		},
	)

	r.MemorySysBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_memory_sys_bytes",
			Help: "Total bytes of memory obtained from the OS",
		},
	)

	r.SearchWorkers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_search_workers",
			Help: "Size of the path search worker pool",
		},
	)

	r.SearchWorkersBusy = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_search_workers_busy",
			Help: "Path searches currently running",
		},
	)

	r.SearchQueueDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_search_queue_depth",
			Help: "Path searches waiting for a worker",
		},
	)

	r.GraphAgeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "corridor_graph_age_seconds",
			Help: "Seconds since the serving graph was built",
		},
	)
}

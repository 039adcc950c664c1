package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_goroutines",
		Help: "Number of goroutines",
	})

	// Renderer metrics
	AttributesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitbook_attributes_skipped_total",
			Help: "Data payload keys dropped because they have no attribute mapping",
		},
		[]string{"key"},
	)

	// Pipeline metrics
	PipelineQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_queue_length",
		Help: "Number of documents waiting to be rendered",
	})

	DocumentsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_documents_rendered_total",
			Help: "Total number of documents rendered",
		},
		[]string{"status"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_render_duration_seconds",
			Help: "Time spent loading and rendering a document",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitbook_api_requests_total",
			Help: "Requests made to the GitBook API",
		},
		[]string{"endpoint", "status"},
	)
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}

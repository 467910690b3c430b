package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ProjectsCreated  prometheus.Counter
	ChunksProcessed  *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
	Assemblies       *prometheus.CounterVec
	SubPartsPerChunk prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ProjectsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_created_total",
			Help:      "Projects created.",
		}),
		ChunksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_processed_total",
			Help:      "Chunk processing outcomes by result.",
		}, []string{"result"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_synthesis_seconds",
			Help:      "Wall time to synthesize one chunk, all sub-parts included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		Assemblies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assemblies_total",
			Help:      "Final audio assembly outcomes by result.",
		}, []string{"result"}),
		SubPartsPerChunk: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_sub_parts",
			Help:      "Sub-parts produced by the safe splitter per chunk.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}
}

func (m *Metrics) ObserveChunkSynthesis(d time.Duration) {
	m.SynthesisLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

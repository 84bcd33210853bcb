package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PositionSamples    *prometheus.CounterVec
	Status             *prometheus.GaugeVec
	FenceReplacements  *prometheus.CounterVec
	FenceVertices      prometheus.Gauge
	ContainmentSeconds *prometheus.HistogramVec
	SinkErrors         *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		PositionSamples: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fencewatch_position_samples_total",
			Help: "Total number of position events received, by result.",
		}, []string{"result"}),
		Status: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "fencewatch_containment_status",
			Help: "Current containment status; the active status is set to 1.",
		}, []string{"status"}),
		FenceReplacements: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fencewatch_fence_replacements_total",
			Help: "Total number of fence edits, by outcome.",
		}, []string{"outcome"}),
		FenceVertices: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fencewatch_active_fence_vertices",
			Help: "Number of vertices of the active fence, 0 when none.",
		}),
		ContainmentSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fencewatch_containment_duration_seconds",
			Help:    "Duration of point-in-polygon evaluations.",
			Buckets: []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005},
		}, []string{"engine"}),
		SinkErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fencewatch_sink_errors_total",
			Help: "Total number of failed status update deliveries, by sink.",
		}, []string{"sink"}),
	}
}

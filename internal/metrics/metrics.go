package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kubeconfig_refresh_total",
		Help: "Total number of refresh cycles by result and failing stage",
	}, []string{"result", "stage"})
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kubeconfig_refresh_duration_seconds",
		Help:    "Wall time of one refresh cycle, token fetch plus write",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kubeconfig_last_success_timestamp_seconds",
		Help: "Unix time of the last cycle that wrote a fresh kubeconfig",
	})
)

func init() {
	prometheus.MustRegister(RefreshTotal, RefreshDuration, LastSuccess)
}

// Recorder feeds cycle outcomes into the package metrics and the health gate.
type Recorder struct {
	Health *Health
}

// Observe records one cycle. stage names the step that failed and is
// ignored when ok is true.
func (r *Recorder) Observe(ok bool, stage string, finished time.Time, took time.Duration) {
	RefreshDuration.Observe(took.Seconds())
	if !ok {
		RefreshTotal.WithLabelValues("failure", stage).Inc()
		return
	}
	RefreshTotal.WithLabelValues("success", "").Inc()
	LastSuccess.Set(float64(finished.Unix()))
	if r.Health != nil {
		r.Health.MarkSuccess(finished)
	}
}

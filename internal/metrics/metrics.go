// Package metrics exposes Prometheus collectors for analysis cycles.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/clusterprops/internal/faults"
)

// Cycle results used as the "result" label.
const (
	ResultOK                   = "ok"
	ResultPartitionUnavailable = "partition_unavailable"
	ResultPropertySource       = "property_source"
	ResultOther                = "other"
)

// Metrics records cycle outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles   *prometheus.CounterVec
	active   prometheus.Gauge
	duration prometheus.Histogram
}

// New registers the collectors on reg. Pass a fresh prometheus.NewRegistry()
// per analysis to keep instances independent.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterprops_cycles_total",
			Help: "Analysis cycles by result",
		}, []string{"result"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "clusterprops_active_tasks",
			Help: "Active tasks in the last successful cycle",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clusterprops_cycle_duration_seconds",
			Help:    "Wall time of one analysis cycle",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
	}
}

// ObserveCycle records one cycle. err nil means success.
func (m *Metrics) ObserveCycle(active int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.cycles.WithLabelValues(Classify(err)).Inc()
	if err == nil {
		m.active.Set(float64(active))
	}
}

// Classify maps an error to its result label.
func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, faults.ErrPartitionUnavailable):
		return ResultPartitionUnavailable
	case errors.Is(err, faults.ErrPropertySource):
		return ResultPropertySource
	default:
		return ResultOther
	}
}

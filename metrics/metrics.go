// Package metrics exposes Prometheus instruments for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments. A nil *Metrics is valid and records nothing,
// so packages can be used without wiring metrics.
type Metrics struct {
	registry *prometheus.Registry

	MutationsTotal        *prometheus.CounterVec
	SnapshotWritesTotal   *prometheus.CounterVec
	SnapshotWriteDuration prometheus.Histogram
	RemoteOpsTotal        *prometheus.CounterVec
	CoachRequestsTotal    *prometheus.CounterVec
	Habits                prometheus.Gauge
}

// New creates instruments on a private registry.
//
// Metrics:
//   - zenhabit_mutations_total{op} - state mutations applied
//   - zenhabit_snapshot_writes_total{result} - debounced snapshot writes
//   - zenhabit_snapshot_write_duration_seconds - snapshot write latency
//   - zenhabit_remote_ops_total{op,result} - per-habit remote pushes
//   - zenhabit_coach_requests_total{result} - AI coaching calls
//   - zenhabit_habits - habits in the current state
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MutationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zenhabit_mutations_total",
			Help: "Total number of state mutations applied",
		}, []string{"op"}),
		SnapshotWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zenhabit_snapshot_writes_total",
			Help: "Total number of snapshot writes by result",
		}, []string{"result"}),
		SnapshotWriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenhabit_snapshot_write_duration_seconds",
			Help:    "Snapshot write latency",
			Buckets: prometheus.DefBuckets,
		}),
		RemoteOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zenhabit_remote_ops_total",
			Help: "Total number of remote habit operations by result",
		}, []string{"op", "result"}),
		CoachRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zenhabit_coach_requests_total",
			Help: "Total number of coaching requests by result",
		}, []string{"result"}),
		Habits: f.NewGauge(prometheus.GaugeOpts{
			Name: "zenhabit_habits",
			Help: "Number of habits in the current state",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) SnapshotWrite(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.SnapshotWritesTotal.WithLabelValues(result(err)).Inc()
	m.SnapshotWriteDuration.Observe(d.Seconds())
}

func (m *Metrics) RemoteOp(op string, err error) {
	if m == nil {
		return
	}
	m.RemoteOpsTotal.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) CoachRequest(err error) {
	if m == nil {
		return
	}
	m.CoachRequestsTotal.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SetHabits(n int) {
	if m == nil {
		return
	}
	m.Habits.Set(float64(n))
}

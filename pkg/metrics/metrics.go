package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	ZonesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murphy_zones_total",
			Help: "Total number of zones defined",
		},
	)

	ResourceDefsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murphy_resource_definitions_total",
			Help: "Total number of resource definitions",
		},
	)

	ClassesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murphy_classes_total",
			Help: "Total number of resource classes",
		},
	)

	ResourceSetsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "murphy_resource_sets_total",
			Help: "Total number of resource sets by zone and request state",
		},
		[]string{"zone", "state"},
	)

	// Arbitration metrics
	ArbitrationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murphy_arbitration_runs_total",
			Help: "Total number of arbitration runs by zone",
		},
		[]string{"zone"},
	)

	ArbitrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murphy_arbitration_duration_seconds",
			Help:    "Time taken to arbitrate a zone in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"zone"},
	)

	GrantChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murphy_grant_changes_total",
			Help: "Total number of resource set grant mask changes by zone",
		},
		[]string{"zone"},
	)

	// MDB metrics
	MDBTablesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murphy_mdb_tables_total",
			Help: "Total number of MDB tables registered",
		},
	)

	MDBTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murphy_mdb_transactions_total",
			Help: "Total number of MDB transactions by outcome (commit, rollback)",
		},
		[]string{"outcome"},
	)

	MDBRowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "murphy_mdb_rows_total",
			Help: "Current number of rows per MDB table",
		},
		[]string{"table"},
	)

	// Resolver metrics
	TargetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murphy_resolver_targets_total",
			Help: "Total number of targets in the resolver graph",
		},
	)

	TargetUpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murphy_resolver_target_update_duration_seconds",
			Help:    "Time taken to update a target's chain in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	TargetUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murphy_resolver_target_updates_total",
			Help: "Total number of resolver target updates by outcome",
		},
		[]string{"outcome"},
	)

	ScriptExecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murphy_script_exec_duration_seconds",
			Help:    "Time taken to execute a target's script in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"interpreter"},
	)
)

func init() {
	prometheus.MustRegister(ZonesTotal)
	prometheus.MustRegister(ResourceDefsTotal)
	prometheus.MustRegister(ClassesTotal)
	prometheus.MustRegister(ResourceSetsTotal)

	prometheus.MustRegister(ArbitrationRunsTotal)
	prometheus.MustRegister(ArbitrationDuration)
	prometheus.MustRegister(GrantChangesTotal)

	prometheus.MustRegister(MDBTablesTotal)
	prometheus.MustRegister(MDBTransactionsTotal)
	prometheus.MustRegister(MDBRowsTotal)

	prometheus.MustRegister(TargetsTotal)
	prometheus.MustRegister(TargetUpdateDuration)
	prometheus.MustRegister(TargetUpdatesTotal)
	prometheus.MustRegister(ScriptExecDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaintenanceMetrics records scheduled job runs and the ledger audit result.
type MaintenanceMetrics struct {
	duration     *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	driftWallets prometheus.Gauge
	purged       *prometheus.CounterVec
}

func NewMaintenanceMetrics(reg prometheus.Registerer) *MaintenanceMetrics {
	if reg == nil {
		return &MaintenanceMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions by outcome.",
	}, []string{"job", "outcome"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_drift_wallets",
		Help: "Wallets whose stored balance disagreed with the ledger on the last audit.",
	})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_rows_purged_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"table"})
	reg.MustRegister(duration, runs, drift, purged)
	return &MaintenanceMetrics{duration: duration, runs: runs, driftWallets: drift, purged: purged}
}

func (m *MaintenanceMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncRun counts one job execution; outcome is "success" or "failure".
func (m *MaintenanceMetrics) IncRun(job, outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Inc()
}

func (m *MaintenanceMetrics) SetLedgerDrift(wallets int) {
	if m == nil || m.driftWallets == nil {
		return
	}
	m.driftWallets.Set(float64(wallets))
}

func (m *MaintenanceMetrics) AddPurged(table string, rows int64) {
	if m == nil || m.purged == nil || rows <= 0 {
		return
	}
	m.purged.WithLabelValues(normalizeLabel(table)).Add(float64(rows))
}

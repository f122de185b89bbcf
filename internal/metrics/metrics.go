// Package metrics provides Prometheus metrics for the zthost daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the Prometheus registry for all zthost metrics. The
	// daemon exposes it on the status API, separate from the default
	// global registry.
	Registry = prometheus.NewRegistry()

	// initialized tracks whether metrics have been initialized.
	initialized = false
)

// Init registers all collectors on the registry. It is called once during
// daemon startup and is a no-op afterwards.
func Init() error {
	if initialized {
		return nil
	}

	if err := Registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	if err := registerReconcileMetrics(); err != nil {
		return err
	}

	initialized = true
	return nil
}

func registerReconcileMetrics() error {
	metrics := []prometheus.Collector{
		RunsTotal,
		RunDuration,
		NetworkActions,
		DeclaredNetworks,
		LastRunTimestamp,
		LocalConfigRewrites,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

var (
	// RunsTotal counts reconciliation runs by result.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zthost_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"result"},
	)

	// RunDuration measures reconciliation run duration in seconds.
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "zthost_reconcile_run_duration_seconds",
			Help: "Reconciliation run duration in seconds",
			// Runs make one API round trip per network, so seconds scale.
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// NetworkActions counts executed per-network actions by kind and status.
	NetworkActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zthost_network_actions_total",
			Help: "Total number of per-network reconciliation actions",
		},
		[]string{"action", "status"},
	)

	// DeclaredNetworks tracks the number of enabled networks in the
	// current declaration.
	DeclaredNetworks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zthost_declared_networks",
			Help: "Number of enabled networks in the current declaration",
		},
	)

	// LastRunTimestamp records when the last reconciliation run finished.
	LastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zthost_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last reconciliation run by result",
		},
		[]string{"result"},
	)

	// LocalConfigRewrites counts rewrites of the agent's local.conf.
	LocalConfigRewrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zthost_local_config_rewrites_total",
			Help: "Total number of local.conf rewrites followed by an agent restart",
		},
	)
)

// RunResult values for the result label.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

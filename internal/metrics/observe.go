package metrics

import (
	"github.com/MyStarInYourSky/zthost/models"
)

// ObserveRun records one finished reconciliation run.
func ObserveRun(summary *models.RunSummary) {
	result := ResultSuccess
	if summary.Failed() {
		result = ResultPartial
		if len(summary.FailedNetworks()) == len(summary.Networks) && len(summary.Networks) > 0 {
			result = ResultError
		}
	}

	RunsTotal.WithLabelValues(result).Inc()
	RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	LastRunTimestamp.WithLabelValues(result).Set(float64(summary.FinishedAt.Unix()))

	for _, network := range summary.Networks {
		status := "success"
		if network.Failed() {
			status = "error"
		}
		for _, action := range network.Actions {
			NetworkActions.WithLabelValues(string(action), status).Inc()
		}
	}

	if summary.LocalConfigChanged {
		LocalConfigRewrites.Inc()
	}
}

// ObserveRunError records a run that failed before producing a summary.
func ObserveRunError() {
	RunsTotal.WithLabelValues(ResultError).Inc()
}

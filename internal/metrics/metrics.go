// Package metrics exposes Prometheus metrics for runs and emitted input.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InputsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoinput_inputs_emitted_total",
		Help: "Total number of emitted inputs by mode (single, sequence, hold)",
	}, []string{"mode"})

	InputErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoinput_input_errors_total",
		Help: "Total number of inputs the platform sink failed to emit",
	})

	RunsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoinput_runs_started_total",
		Help: "Total number of runs started, by path (direct, scheduled)",
	}, []string{"path"})

	RunsStoppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoinput_runs_stopped_total",
		Help: "Total number of runs stopped, by reason (user, count, schedule, cancel)",
	}, []string{"reason"})

	RunState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autoinput_run_state",
		Help: "1 for the current run state, 0 otherwise",
	}, []string{"state"})

	ActiveSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoinput_active_seconds",
		Help: "Active time counter shown to the user",
	})

	ConfigSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoinput_config_saves_total",
		Help: "Total number of configuration saves by result",
	}, []string{"result"})

	ConfigLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoinput_config_loads_total",
		Help: "Total number of configuration loads by source (startup, watch, api) and result",
	}, []string{"source", "result"})
)

var states = []string{"idle", "running", "scheduled"}

// SetRunState marks state as the current run state.
func SetRunState(state string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		RunState.WithLabelValues(s).Set(v)
	}
}

// IncInput records one emitted input.
func IncInput(mode string, err error) {
	InputsEmittedTotal.WithLabelValues(mode).Inc()
	if err != nil {
		InputErrorsTotal.Inc()
	}
}

// IncConfigSave records a save attempt.
func IncConfigSave(err error) {
	ConfigSavesTotal.WithLabelValues(result(err)).Inc()
}

// IncConfigLoad records a load attempt from source.
func IncConfigLoad(source string, err error) {
	ConfigLoadsTotal.WithLabelValues(source, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

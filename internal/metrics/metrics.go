// Package metrics holds the prometheus collectors of the initialization
// subsystem. Collectors register with the default registry on import.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Init outcomes.
const (
	OutcomeFastPath         = "fast_path"
	OutcomeSuccess          = "success"
	OutcomeFailure          = "failure"
	OutcomePreviouslyFailed = "previously_failed"
)

var (
	InitStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foundation_init_step_duration_seconds",
		Help:    "Duration of each initialization step",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"step"})

	InitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foundation_init_total",
		Help: "Total number of Initialize calls by outcome",
	}, []string{"outcome"})

	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foundation_state_transitions_total",
		Help: "Total number of lifecycle state transitions",
	}, []string{"from", "to"})

	LogEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foundation_log_events_total",
		Help: "Total number of log events emitted by level",
	}, []string{"level"})

	ConfigUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foundation_config_updates_total",
		Help: "Total number of UpdateConfigIfDefault calls by whether the update applied",
	}, []string{"applied"})
)

// ObserveStep records the duration of an initialization step.
func ObserveStep(step string, d time.Duration) {
	if step == "" {
		step = "unknown"
	}
	InitStepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// IncInit records the outcome of an Initialize call.
func IncInit(outcome string) {
	InitTotal.WithLabelValues(outcome).Inc()
}

// IncTransition records a lifecycle transition.
func IncTransition(from, to string) {
	StateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncConfigUpdate records an UpdateConfigIfDefault call.
func IncConfigUpdate(applied bool) {
	ConfigUpdatesTotal.WithLabelValues(strconv.FormatBool(applied)).Inc()
}

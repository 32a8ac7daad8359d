package workflow

import (
	"github.com/dukex/caseflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	executions *prometheus.CounterVec
	actions    *prometheus.CounterVec
	dispatch   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caseflow",
			Name:      "executions_total",
			Help:      "Workflow executions by terminal status.",
		}, []string{"status"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caseflow",
			Name:      "actions_total",
			Help:      "Executed actions by type and outcome.",
		}, []string{"type", "status"}),
		dispatch: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caseflow",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one event to every matching rule.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) execution(status models.ExecutionStatus) {
	m.executions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) action(actionType models.ActionType, status models.StepStatus) {
	m.actions.WithLabelValues(string(actionType), string(status)).Inc()
}

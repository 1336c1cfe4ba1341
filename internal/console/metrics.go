package console

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hongminglow/lending-console/internal/reconcile"
)

var (
	backendOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_backend_outcomes_total",
			Help: "Backend call outcomes seen by the console, by resource, operation and kind",
		},
		[]string{"resource", "op", "outcome"},
	)

	workspacesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_workspaces_active",
			Help: "Number of browser workspaces held in memory",
		},
	)
)

func observe(resource, op string, out reconcile.Outcome) {
	backendOutcomes.WithLabelValues(resource, op, out.Kind.String()).Inc()
}

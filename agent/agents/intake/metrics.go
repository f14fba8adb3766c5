package intake

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "intake_outcomes_total",
			Help: "Intake tool invocations by tool and returned status.",
		}, []string{"tool", "status"}),
	}
}

func (m *Metrics) observe(tool, status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(tool, status).Inc()
}

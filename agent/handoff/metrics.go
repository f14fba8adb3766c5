package handoff

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

type Metrics struct {
	deliveries *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		deliveries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "handoff_deliveries_total",
			Help: "Handoff deliveries by destination, target and result.",
		}, []string{"destination", "target", "result"}),
	}
}

func (m *Metrics) observeDelivery(destination contractx.Destination, target string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(string(destination), target, result).Inc()
}

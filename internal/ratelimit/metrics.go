package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the read-only derived surface of the limiter: total checks and
// denials per class. The denial ratio is derived by the scraper; none of
// this feeds back into control flow.
type Metrics struct {
	checks  *prometheus.CounterVec
	denials *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "craftlink",
			Subsystem: "ratelimit",
			Name:      "checks_total",
			Help:      "Rate limit checks performed, by operation class.",
		}, []string{"class"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "craftlink",
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Rate limit denials, by operation class.",
		}, []string{"class"}),
	}
	if reg != nil {
		reg.MustRegister(m.checks, m.denials)
	}
	return m
}

func (m *Metrics) observe(class Class, denied bool) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(string(class)).Inc()
	if denied {
		m.denials.WithLabelValues(string(class)).Inc()
	}
}

package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the session-lifecycle outcomes worth alerting on. A nil
// *Metrics is valid and counts nothing, which keeps handler tests quiet.
type Metrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clouddoctor",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clouddoctor",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) LoginSuccess() {
	if m != nil {
		m.logins.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) LoginFailure() {
	if m != nil {
		m.logins.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) RefreshSuccess() {
	if m != nil {
		m.refreshes.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) RefreshFailure() {
	if m != nil {
		m.refreshes.WithLabelValues("failure").Inc()
	}
}

// Package metrics exports load outcome counters through Prometheus.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"

	loadgate "github.com/reoring/loadgate"
)

// PrometheusObserver implements loadgate.Observer using Prometheus counters.
type PrometheusObserver struct {
	outcomes   *prom.CounterVec
	violations *prom.CounterVec
}

var _ loadgate.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver constructs the counters and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusObserver(reg prom.Registerer) *PrometheusObserver {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	po := &PrometheusObserver{
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadgate",
			Name:      "outcomes_total",
			Help:      "Normalized load outcomes by kind",
		}, []string{"kind"}),
		violations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadgate",
			Name:      "violations_total",
			Help:      "Load contract violations by issue code",
		}, []string{"code"}),
	}
	reg.MustRegister(po.outcomes, po.violations)
	return po
}

func (p *PrometheusObserver) ObserveOutcome(k loadgate.Kind) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(k.String()).Inc()
}

func (p *PrometheusObserver) ObserveViolation(code string) {
	if p == nil || p.violations == nil {
		return
	}
	p.violations.WithLabelValues(code).Inc()
}

package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Call outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeCached      = "cached"
	OutcomeError       = "error"
	OutcomeInvalid     = "invalid_response"
	OutcomeBreakerOpen = "breaker_open"
	OutcomeRateLimited = "rate_limited"
)

// Metrics are the provider call collectors.
type Metrics struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewMetrics registers the provider collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "LLM provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Latency of LLM provider calls, retries included.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Retried LLM provider attempts.",
		}, []string{"provider"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "provider_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open).",
		}, []string{"provider"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration, m.retries, m.breakerState} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveBreaker is suitable as a resilience.BreakerSettings.OnStateChange hook.
func (m *Metrics) ObserveBreaker(provider string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(provider).Set(float64(to))
}

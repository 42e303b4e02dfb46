// Package metrics exposes Prometheus instrumentation for rate limit decisions.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
)

// Decision outcomes recorded on the decisions counter.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// KeyCounter reports how many counters are currently tracked.
type KeyCounter interface {
	Len() int
}

// Metrics holds the rate limiter collectors.
type Metrics struct {
	gatherer  prometheus.Gatherer
	decisions *prometheus.CounterVec
}

// New registers the rate limiter collectors on registry.
func New(registry *prometheus.Registry, keys KeyCounter) (*Metrics, error) {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions by outcome and rejection reason.",
	}, []string{"outcome", "reason"})

	trackedKeys := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ratelimit",
		Name:      "tracked_keys",
		Help:      "Phone and account counters currently held in memory.",
	}, func() float64 {
		return float64(keys.Len())
	})

	for _, c := range []prometheus.Collector{decisions, trackedKeys} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Metrics{gatherer: registry, decisions: decisions}, nil
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Observe records the outcome of a single decision.
func (m *Metrics) Observe(decision *ratelimit.Decision, err error) {
	switch {
	case err != nil:
		m.decisions.WithLabelValues(OutcomeError, "").Inc()
	case decision.Accepted:
		m.decisions.WithLabelValues(OutcomeAccepted, "").Inc()
	default:
		m.decisions.WithLabelValues(OutcomeRejected, string(decision.Reason)).Inc()
	}
}

// Wrap returns a limiter that records every decision made by next.
func (m *Metrics) Wrap(next ratelimit.Limiter) ratelimit.Limiter {
	return &instrumentedLimiter{next: next, metrics: m}
}

type instrumentedLimiter struct {
	next    ratelimit.Limiter
	metrics *Metrics
}

func (l *instrumentedLimiter) Decide(ctx context.Context, req ratelimit.Request) (*ratelimit.Decision, error) {
	decision, err := l.next.Decide(ctx, req)
	l.metrics.Observe(decision, err)

	return decision, err
}

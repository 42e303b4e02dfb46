package container

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"
	"github.com/serroba/message-ratelimiter/internal/metrics"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
	"github.com/serroba/message-ratelimiter/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the counter store and the instrumented limiter.
// Invoking ratelimit.Limiter fails with ratelimit.ErrMisconfiguration when a
// limit is not positive.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.CounterMemoryStore, error) {
		opts := do.MustInvoke[*Options](i)

		counters := store.NewCounterMemoryStore(
			store.WithCounterTTL(time.Duration(opts.CounterTTL)*time.Second),
			store.WithSweepInterval(time.Duration(opts.SweepInterval)*time.Second),
			store.WithShards(opts.Shards),
		)

		if err := counters.Start(context.Background()); err != nil {
			return nil, err
		}

		return counters, nil
	})

	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		counters, err := do.Invoke[*store.CounterMemoryStore](i)
		if err != nil {
			return nil, err
		}

		decider, err := ratelimit.NewDecider(counters, ratelimit.Limits{
			PerPhone:   opts.PhoneLimit,
			PerAccount: opts.AccountLimit,
		}, ratelimit.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		m, err := do.Invoke[*metrics.Metrics](i)
		if err != nil {
			return nil, err
		}

		limits := decider.Limits()
		logger.Info("rate limiter ready",
			zap.Int("phoneLimit", limits.PerPhone),
			zap.Int("accountLimit", limits.PerAccount),
		)

		return m.Wrap(decider), nil
	})
}

// MetricsPackage provides the Prometheus registry and rate limiter collectors.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*metrics.Metrics, error) {
		counters, err := do.Invoke[*store.CounterMemoryStore](i)
		if err != nil {
			return nil, err
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		return metrics.New(registry, counters)
	})
}

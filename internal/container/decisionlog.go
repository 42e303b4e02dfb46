package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/message-ratelimiter/internal/decisionlog"
	"github.com/serroba/message-ratelimiter/internal/events"
	"github.com/serroba/message-ratelimiter/internal/handlers"
	"github.com/serroba/message-ratelimiter/internal/messaging"
	"go.uber.org/zap"
)

// DecisionLogGroup is the Redis Streams consumer group shared by every
// decision log consumer, so each decision is stored once.
const DecisionLogGroup = "decision-log"

// Postgres owns the connection pool so the injector closes it on shutdown.
type Postgres struct {
	*pgxpool.Pool
}

// Shutdown closes the pool.
func (p *Postgres) Shutdown() error {
	p.Close()

	return nil
}

// Compile-time check.
var _ handlers.DecisionHistory = (*decisionlog.PostgresStore)(nil)

// PostgresPackage provides the connection pool for Options.DatabaseURL.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		ctx := context.Background()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return &Postgres{Pool: pool}, nil
	})
}

// DecisionLogPackage provides the decision store and the consumer group that
// persists decisions read from Redis Streams. Without a database URL decisions
// are only logged.
func DecisionLogPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (decisionlog.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.DatabaseURL == "" {
			return decisionlog.NewNoop(do.MustInvoke[*zap.Logger](i)), nil
		}

		pg, err := do.Invoke[*Postgres](i)
		if err != nil {
			return nil, err
		}

		pgStore := decisionlog.NewPostgresStore(pg.Pool)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}

		return pgStore, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*Redis](i)

		decisions, err := do.Invoke[decisionlog.Store](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := messaging.NewRedisSubscriber(
			client.Client,
			DecisionLogGroup,
			messaging.NewZapLoggerAdapter(logger),
		)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer[events.DecisionEvent](
			subscriber,
			events.TopicDecisions,
			decisionlog.Handler(decisions),
			logger,
		))

		return group, nil
	})
}

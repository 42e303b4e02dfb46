// Package decisionlog persists rate limit decisions consumed from the broker.
package decisionlog

import (
	"context"

	"github.com/serroba/message-ratelimiter/internal/events"
	"go.uber.org/zap"
)

// Store persists decision events.
type Store interface {
	SaveDecision(ctx context.Context, event *events.DecisionEvent) error
}

// Handler adapts store to a messaging handler.
func Handler(store Store) func(ctx context.Context, event *events.DecisionEvent) error {
	return store.SaveDecision
}

// Noop is a Store that only logs the events it receives.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new logging-only decision store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveDecision(_ context.Context, event *events.DecisionEvent) error {
	n.logger.Info("decision event received",
		zap.String("id", event.ID),
		zap.String("accountId", event.AccountID),
		zap.String("phone", event.Phone),
		zap.Bool("accepted", event.Accepted),
		zap.String("reason", event.Reason),
		zap.Time("decidedAt", event.DecidedAt),
	)

	return nil
}

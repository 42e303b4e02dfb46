package liveupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/serroba/message-ratelimiter/internal/events"
	"go.uber.org/zap"
)

// DefaultSubscriberBuffer is how many undelivered messages a subscriber may
// queue before it is dropped as too slow.
const DefaultSubscriberBuffer = 64

type subscriber struct {
	messages chan []byte
}

// Hub fans decision events out to every live observer.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	buffer      int
	closed      bool
	logger      *zap.Logger
}

// NewHub creates a hub whose subscribers queue up to buffer messages.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a new observer. The returned channel is closed when the
// observer is dropped, unsubscribed, or the hub shuts down.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	sub := &subscriber{messages: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.closed {
		close(sub.messages)
	} else {
		h.subscribers[sub] = struct{}{}
	}
	h.mu.Unlock()

	return sub.messages, func() { h.remove(sub) }
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subscribers[sub]; !ok {
		return
	}

	delete(h.subscribers, sub)
	close(sub.messages)
}

// Broadcast queues payload for every subscriber and returns how many received it.
// Subscribers whose queue is full are dropped.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0

	for sub := range h.subscribers {
		select {
		case sub.messages <- payload:
			delivered++
		default:
			h.logger.Warn("dropping slow live update subscriber")
			h.removeLocked(sub)
		}
	}

	return delivered
}

// HandleDecision broadcasts a decision event. It matches messaging.Handler.
func (h *Hub) HandleDecision(_ context.Context, event *events.DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}

	delivered := h.Broadcast(payload)

	h.logger.Debug("broadcast decision",
		zap.String("id", event.ID),
		zap.Int("subscribers", delivered),
	)

	return nil
}

// SubscriberCount returns the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Shutdown disconnects every observer and refuses new ones.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for sub := range h.subscribers {
		h.removeLocked(sub)
	}

	return nil
}

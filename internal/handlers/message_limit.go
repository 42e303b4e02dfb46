package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/message-ratelimiter/internal/events"
	"github.com/serroba/message-ratelimiter/internal/messaging"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
	"go.uber.org/zap"
)

// MessageLimitHandler answers whether a message may be sent right now.
type MessageLimitHandler struct {
	limiter ratelimit.Limiter
	publish messaging.Publish[events.DecisionEvent]
	newID   func() string
	logger  *zap.Logger
}

// NewMessageLimitHandler creates a new message limit handler.
// Every decision is published after the response is built; publish failures
// are logged and never fail the request.
func NewMessageLimitHandler(
	limiter ratelimit.Limiter,
	publish messaging.Publish[events.DecisionEvent],
	newID func() string,
	logger *zap.Logger,
) *MessageLimitHandler {
	return &MessageLimitHandler{
		limiter: limiter,
		publish: publish,
		newID:   newID,
		logger:  logger,
	}
}

func (h *MessageLimitHandler) CheckMessageLimit(
	ctx context.Context,
	req *MessageLimitRequest,
) (*MessageLimitResponse, error) {
	decision, err := h.limiter.Decide(ctx, ratelimit.Request{
		AccountID: req.Body.AccountID,
		Phone:     req.Body.Phone,
	})
	if err != nil {
		if errors.Is(err, ratelimit.ErrInvalidInput) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		h.logger.Error("rate limit decision failed", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to evaluate message limit")
	}

	event := events.NewDecisionEvent(h.newID(), decision)
	if err := h.publish(ctx, event); err != nil {
		h.logger.Error("failed to publish decision event",
			zap.String("id", event.ID),
			zap.Error(err),
		)
	}

	resp := &MessageLimitResponse{}
	resp.Body.AccountID = decision.AccountID
	resp.Body.Phone = decision.Phone
	resp.Body.AccountMessageCount = decision.AccountCount
	resp.Body.PhoneMessageCount = decision.PhoneCount
	resp.Body.LastAccountMessage = decision.LastAccountMessageAt
	resp.Body.LastPhoneMessage = decision.LastPhoneMessageAt
	resp.Body.IsRateLimitOkay = decision.Accepted
	resp.Body.Reason = string(decision.Reason)

	return resp, nil
}

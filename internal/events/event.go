package events

import (
	"time"

	"github.com/serroba/message-ratelimiter/internal/ratelimit"
)

// TopicDecisions carries one DecisionEvent per evaluated message.
const TopicDecisions = "ratelimit.decisions"

// DecisionEvent is emitted for every rate limit decision, accepted or not.
type DecisionEvent struct {
	ID                  string    `json:"id"`
	AccountID           string    `json:"accountId"`
	Phone               string    `json:"phone"`
	AccountMessageCount int       `json:"accountMessageCount"`
	PhoneMessageCount   int       `json:"phoneMessageCount"`
	Accepted            bool      `json:"accepted"`
	Reason              string    `json:"reason,omitempty"`
	DecidedAt           time.Time `json:"decidedAt"`
}

// NewDecisionEvent builds the event published for decision.
func NewDecisionEvent(id string, decision *ratelimit.Decision) *DecisionEvent {
	return &DecisionEvent{
		ID:                  id,
		AccountID:           decision.AccountID,
		Phone:               decision.Phone,
		AccountMessageCount: decision.AccountCount,
		PhoneMessageCount:   decision.PhoneCount,
		Accepted:            decision.Accepted,
		Reason:              string(decision.Reason),
		DecidedAt:           decision.DecidedAt,
	}
}

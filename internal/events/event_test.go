package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/serroba/message-ratelimiter/internal/events"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecisionEvent(t *testing.T) {
	decidedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	decision := &ratelimit.Decision{
		AccountID:    "123",
		Phone:        "9898989898",
		AccountCount: 100,
		PhoneCount:   4,
		Accepted:     false,
		Reason:       ratelimit.ReasonAccount,
		DecidedAt:    decidedAt,
	}

	event := events.NewDecisionEvent("evt-1", decision)

	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, "123", event.AccountID)
	assert.Equal(t, "9898989898", event.Phone)
	assert.Equal(t, 100, event.AccountMessageCount)
	assert.Equal(t, 4, event.PhoneMessageCount)
	assert.False(t, event.Accepted)
	assert.Equal(t, "account", event.Reason)
	assert.Equal(t, decidedAt, event.DecidedAt)
}

func TestDecisionEvent_OmitsEmptyReason(t *testing.T) {
	event := events.NewDecisionEvent("evt-2", &ratelimit.Decision{AccountID: "1", Phone: "2", Accepted: true})

	payload, err := json.Marshal(event)

	require.NoError(t, err)
	assert.NotContains(t, string(payload), "reason")
	assert.Contains(t, string(payload), `"accepted":true`)
}

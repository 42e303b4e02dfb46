package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Window is the interval over which messages are counted.
const Window = time.Second

// Reason names the quota that rejected a message.
type Reason string

const (
	// ReasonNone is reported for accepted messages.
	ReasonNone Reason = ""
	// ReasonPhone is reported when the per-phone quota is exhausted.
	ReasonPhone Reason = "phone"
	// ReasonAccount is reported when the per-account quota is exhausted.
	ReasonAccount Reason = "account"
)

// Limits holds the per-window quotas. Both must be positive.
type Limits struct {
	PerPhone   int
	PerAccount int
}

// Validate checks that both quotas are positive.
func (l Limits) Validate() error {
	if l.PerPhone <= 0 {
		return fmt.Errorf("%w: phone limit must be positive, got %d", ErrMisconfiguration, l.PerPhone)
	}

	if l.PerAccount <= 0 {
		return fmt.Errorf("%w: account limit must be positive, got %d", ErrMisconfiguration, l.PerAccount)
	}

	return nil
}

// Request identifies one outbound message.
type Request struct {
	AccountID string
	Phone     string
}

// Normalize returns the request with surrounding whitespace removed.
func (r Request) Normalize() Request {
	return Request{
		AccountID: strings.TrimSpace(r.AccountID),
		Phone:     strings.TrimSpace(r.Phone),
	}
}

// Validate rejects requests with a blank account ID or phone.
func (r Request) Validate() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	return nil
}

// Decision is the outcome of evaluating one request.
// Counts and timestamps are the stored values after the decision was applied.
type Decision struct {
	AccountID            string
	Phone                string
	AccountCount         int
	PhoneCount           int
	LastAccountMessageAt time.Time
	LastPhoneMessageAt   time.Time
	Accepted             bool
	Reason               Reason
	DecidedAt            time.Time
}

// PhoneKey returns the store key for a phone number.
func PhoneKey(phone string) string {
	return "phone:" + phone
}

// AccountKey returns the store key for an account.
func AccountKey(accountID string) string {
	return "account:" + accountID
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Limiter decides whether a message may be sent.
type Limiter interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}

// Option configures a Decider.
type Option func(*Decider)

// WithClock replaces the time source used for window calculations.
func WithClock(now func() time.Time) Option {
	return func(d *Decider) {
		d.now = now
	}
}

// WithLogger sets the logger used to report rejections.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decider) {
		d.logger = logger
	}
}

// Decider enforces independent per-phone and per-account quotas over a fixed
// window anchored on the last accepted message for each key.
type Decider struct {
	store  Store
	limits Limits
	now    func() time.Time
	logger *zap.Logger
}

// NewDecider creates a decider backed by store.
// It returns ErrMisconfiguration when store is nil or either limit is not positive.
func NewDecider(store Store, limits Limits, opts ...Option) (*Decider, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrMisconfiguration)
	}

	if err := limits.Validate(); err != nil {
		return nil, err
	}

	d := &Decider{
		store:  store,
		limits: limits,
		now:    time.Now,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Limits returns the configured quotas.
func (d *Decider) Limits() Limits {
	return d.limits
}

// Decide evaluates req against both quotas and, when both have headroom,
// records the message against the phone and the account.
//
// The phone counter is locked before the account counter. Keys of the two
// kinds live in separate namespaces, so the order is global and concurrent
// decisions cannot deadlock. Both checks and both updates happen while both
// counters are held, which keeps the last slot of a window to a single winner.
func (d *Decider) Decide(ctx context.Context, req Request) (*Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req = req.Normalize()
	decision := &Decision{
		AccountID: req.AccountID,
		Phone:     req.Phone,
	}

	withCounter(d.store, PhoneKey(req.Phone), func(phone *Counter) {
		withCounter(d.store, AccountKey(req.AccountID), func(account *Counter) {
			d.apply(decision, phone, account)
		})
	})

	if !decision.Accepted {
		d.logger.Debug("message limit exceeded",
			zap.String("reason", string(decision.Reason)),
			zap.String("accountId", decision.AccountID),
			zap.String("phone", decision.Phone),
			zap.Int("accountCount", decision.AccountCount),
			zap.Int("phoneCount", decision.PhoneCount),
		)
	}

	return decision, nil
}

func (d *Decider) apply(decision *Decision, phone, account *Counter) {
	now := d.now()
	phoneCount := phone.Effective(now, Window)
	accountCount := account.Effective(now, Window)

	switch {
	case phoneCount >= d.limits.PerPhone:
		decision.Reason = ReasonPhone
	case accountCount >= d.limits.PerAccount:
		decision.Reason = ReasonAccount
	default:
		decision.Accepted = true
		phoneCount++
		accountCount++
		phone.LastMessageAt = now
		account.LastMessageAt = now
	}

	// On rejection this only differs from the stored count when the window
	// has elapsed, in which case the reset is persisted instead of waiting
	// for the entry to expire.
	phone.Count = phoneCount
	account.Count = accountCount

	decision.PhoneCount = phone.Count
	decision.AccountCount = account.Count
	decision.LastPhoneMessageAt = phone.LastMessageAt
	decision.LastAccountMessageAt = account.LastMessageAt
	decision.DecidedAt = now
}

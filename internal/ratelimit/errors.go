package ratelimit

import "errors"

var (
	// ErrInvalidInput is returned when a request carries an empty identifier.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMisconfiguration is returned when the limiter is built with unusable limits.
	ErrMisconfiguration = errors.New("rate limiter misconfigured")
)

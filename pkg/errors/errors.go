package apperrors

import "errors"

// Standardized service errors
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMissingFields        = errors.New("missing required fields")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrNetwork              = errors.New("network error")
	ErrUpstream             = errors.New("upstream service error")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotConfigured        = errors.New("not configured")
)

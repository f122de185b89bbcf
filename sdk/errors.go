package sdk

import "errors"

// Common SDK errors that callers can check for specific error handling.
var (
	// ErrInvalidConfig indicates the client configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrMissingAuth indicates no API key was provided for an authenticated call.
	ErrMissingAuth = errors.New("missing api key")

	// ErrUnauthorized indicates the API key was rejected by the control plane.
	ErrUnauthorized = errors.New("unauthorized: invalid api key")

	// ErrNotFound indicates the network or member does not exist on the
	// control plane.
	ErrNotFound = errors.New("network or member not found")

	// ErrRateLimited indicates the control plane rejected the request due to
	// rate limiting.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServerError indicates the control plane returned a 5xx response.
	ErrServerError = errors.New("control plane server error")
)

package llm

import "errors"

var (
	// ErrRateLimited marks a 429 from the model provider; retried with backoff.
	ErrRateLimited = errors.New("model rate limited")

	// ErrServiceError marks a provider-side failure worth retrying.
	ErrServiceError = errors.New("model service error")

	// ErrInvalidInput marks input the provider rejected; never retried.
	ErrInvalidInput = errors.New("model rejected input")
)

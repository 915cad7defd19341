package domain

import "github.com/pkg/errors"

var (
	// ErrNoProvider is returned when a currency has no eligible provider:
	// either none are registered or all are cooling down.
	ErrNoProvider = errors.New("no provider available")

	// ErrRateLimited marks a provider response with HTTP status 429. It is
	// retried like any other failure but logged distinctly.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrMalformedResponse marks a response where a balance value was
	// expected but could not be parsed as a number.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrUnsupportedCurrency is returned by the derivation table for chains
	// it has no strategy for. Unlike transient lookup failures it escalates:
	// it indicates a configuration or programming error.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

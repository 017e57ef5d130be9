package services

import (
	"errors"
	"fmt"
)

// Sentinel failure classes for upstream market data calls. Wrap these
// with %w so callers can classify with errors.Is; only ErrTransient
// failures are worth retrying.
var (
	// ErrTransient marks failures that may clear on their own: network
	// errors, timeouts, rate limits, upstream 5xx.
	ErrTransient = errors.New("transient upstream failure")

	// ErrBadFormat marks responses that arrived but could not be parsed.
	// Retrying replays the same malformed payload, so these never retry.
	ErrBadFormat = errors.New("malformed upstream response")

	// ErrNotFound marks symbols the upstream does not know.
	ErrNotFound = errors.New("symbol not found")
)

// ProviderError attaches the provider and symbol to an upstream failure
// so fallback logs can say which tier failed and why.
type ProviderError struct {
	Provider string
	Symbol   string
	Err      error
}

func NewProviderError(provider, symbol string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Symbol: symbol, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err belongs to the retryable class.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classifyStatus maps an upstream HTTP status to a failure class.
func classifyStatus(status int) error {
	switch {
	case status == 404:
		return fmt.Errorf("%w: status %d", ErrNotFound, status)
	case status == 429 || status >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, status)
	default:
		return fmt.Errorf("%w: status %d", ErrBadFormat, status)
	}
}

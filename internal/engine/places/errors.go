package places

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchFailed matches every *SearchFailed with errors.Is.
	ErrSearchFailed = errors.New("search failed")
	// ErrInvalidRequest is returned for arguments that never reach the provider.
	ErrInvalidRequest = errors.New("invalid search request")
)

// SearchFailed wraps a provider or network failure of one search call.
type SearchFailed struct {
	Op       string // "nearby" or "text"
	Provider string
	Err      error
}

func (e *SearchFailed) Error() string {
	return fmt.Sprintf("%s search via %s failed: %v", e.Op, e.Provider, e.Err)
}

func (e *SearchFailed) Unwrap() error {
	return e.Err
}

func (e *SearchFailed) Is(target error) bool {
	return target == ErrSearchFailed
}

// RateLimitError indicates the provider is rate limiting us.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// ProviderError is a failure reported inside an otherwise well-formed response.
type ProviderError struct {
	Status  string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "provider status " + e.Status
	}
	return fmt.Sprintf("provider status %s: %s", e.Status, e.Message)
}

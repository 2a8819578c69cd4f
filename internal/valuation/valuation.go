// Package valuation defines the interface to the upstream property
// valuation provider and the raw response shapes it returns.
//
// Raw documents are kept as loosely-typed maps on purpose: upstream field
// names drift across provider versions, and reconciling them into the
// canonical domain shape is the normalizer's job, not the transport's.
package valuation

import (
	"context"
	"errors"
	"fmt"
)

// Document is one raw upstream record with provider-specific field names.
type Document map[string]any

// RawResponse is the unprocessed result of one provider search: the subject
// property plus pre-ranked comparables. Comparable entries may either wrap
// their property under a "property" key or carry the property fields
// inline; the normalizer handles both.
type RawResponse struct {
	Property    Document
	Comparables []Document
}

// Provider fetches a subject property and its comparables for an address.
// limit caps how many comparables the provider is asked for; the caller
// derives it from the user's subscription tier so denied or low-tier
// requests never consume more provider quota than entitled.
type Provider interface {
	SearchComparables(ctx context.Context, address string, limit int) (*RawResponse, error)
}

// Error codes for provider operations
var (
	// ErrNotFound indicates the provider has no record of the address.
	ErrNotFound = errors.New("valuation provider: property not found")

	// ErrRateLimit indicates the provider rate limit has been exceeded.
	ErrRateLimit = errors.New("valuation provider: rate limit exceeded")

	// ErrTimeout indicates the provider request timed out.
	ErrTimeout = errors.New("valuation provider: request timed out")

	// ErrUnavailable indicates the provider is temporarily unavailable.
	ErrUnavailable = errors.New("valuation provider: temporarily unavailable")

	// ErrUnauthorized indicates invalid provider credentials.
	ErrUnauthorized = errors.New("valuation provider: authentication failed")
)

// IsRetryable returns true for transient errors a caller may retry later.
// Retries never happen within a single search request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with context about the provider operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("valuation %s: %w", operation, err)
}

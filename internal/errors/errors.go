// Package errors provides standardized errors that express protocol intent
// rather than infrastructure details. These errors are raised by the client
// layers and can be classified by callers with Is.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories used across all client layers.
var (
	// ErrInvalidInput indicates a configuration or argument is invalid
	// (blank credential, malformed key material, out-of-range TTL).
	// Always raised before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProtocolViolation indicates the remote service returned a response
	// the protocol does not allow (missing fields, key identifier mismatch,
	// encrypted payload without a configured decryption key).
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrTransport indicates a network-level failure (timeout, connection
	// failure, HTTP status >= 400). Never retried by the client.
	ErrTransport = errors.New("transport failure")

	// ErrCrypto indicates a cryptographic operation failed (decryption
	// failure, unusable key). Partial output is never returned.
	ErrCrypto = errors.New("cryptographic failure")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

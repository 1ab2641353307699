// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Wizard session errors
	ErrSessionNotFound       = errors.New("wizard session not found")
	ErrSessionSubmitted      = errors.New("wizard session already submitted")
	ErrUnknownService        = errors.New("unknown service identifier")
	ErrUnknownOption         = errors.New("unknown service option code")
	ErrUnknownDeliveryMethod = errors.New("unknown delivery method")

	// Document capture errors
	ErrInvalidCapture          = errors.New("unsupported image type or size")
	ErrLowConfidenceExtraction = errors.New("extraction confidence below acceptance threshold")
	ErrExtractionFailed        = errors.New("document extraction failed")
	ErrCaptureInFlight         = errors.New("a capture for this slot is already in progress")
	ErrExpiredDocument         = errors.New("document is expired and the service does not accept expired documents")

	// Billing errors
	ErrExternalLookupFailed = errors.New("company registry lookup failed")
	ErrCUINotVerified       = errors.New("company tax id has not been verified")
	ErrInvalidNationalID    = errors.New("national id is not syntactically plausible")
	ErrInvalidBillingSource = errors.New("invalid billing source")

	// Profile store errors
	ErrAddressNotFound        = errors.New("address not found")
	ErrBillingProfileNotFound = errors.New("billing profile not found")

	// Order errors
	ErrPaymentRejected = errors.New("payment collaborator rejected the order")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message
func New(message string) error {
	return errors.New(message)
}

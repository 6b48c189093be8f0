/*
errors.go - Centralized error types for the billing core

PURPOSE:
  All domain error types in one place. The API layer classifies these into
  HTTP statuses; nothing here knows about HTTP.

ERROR CATEGORIES:
  1. Validation errors - malformed aggregation/invoice input
  2. Not-found - zero-match lookups (never a default/empty result)
  3. Store errors - remote store call failed or rejected
  4. Regeneration errors - artifact could not be rebuilt from stored params

USAGE:
  if errors.Is(err, billing.ErrDuplicateInvoiceNumber) { ... }

  var se *billing.StoreError
  if errors.As(err, &se) { ... }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateRange is returned when a range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrNoCarersSelected is returned when aggregation is requested with an
	// empty carer scope.
	ErrNoCarersSelected = errors.New("no carers selected")

	// ErrMissingInvoiceNumber is returned when an invoice is saved without
	// its human-assigned number.
	ErrMissingInvoiceNumber = errors.New("missing invoice number")

	// ErrNotFound is returned when a lookup matches zero rows. Lookups never
	// fall back to a default or empty artifact.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateInvoiceNumber is returned when an invoice number collides
	// with an existing record. Enforced by a store-level unique constraint so
	// concurrent saves cannot both pass the pre-insert check.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StoreError wraps a failed or rejected remote store call. It is reported
// once to the caller and never retried automatically.
type StoreError struct {
	Op    string // e.g. "list shifts", "insert invoice"
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// RegenerationError indicates the artifact could not be rebuilt from an
// invoice's persisted parameters. The underlying shift data may have
// changed since the invoice's original generation.
type RegenerationError struct {
	InvoiceNumber string
	Err           error
}

func (e *RegenerationError) Error() string {
	return fmt.Sprintf("regenerate invoice %s: %v", e.InvoiceNumber, e.Err)
}

func (e *RegenerationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for errors caused by invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrNoCarersSelected) ||
		errors.Is(err, ErrMissingInvoiceNumber) ||
		errors.Is(err, ErrDuplicateInvoiceNumber)
}

// IsNotFound returns true if the error indicates a zero-match lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

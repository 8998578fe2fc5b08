// Package common defines shared constants and errors used across the
// stockkeeper components. Sentinels are matched with errors.Is, the typed
// errors with errors.As.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Export produced no rows.
	ErrNothingToExport = errors.New("nothing to export")

	// Cart errors.
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// Validation errors.
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidNavRef = errors.New("invalid navigation reference")
)

// FormatError reports a source file that cannot be parsed as a table.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError reports a required column missing from the source header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q is missing", e.Column)
}

// InsufficientStockError is returned when a reservation asks for more than
// the live availability. Limit is the largest quantity that would succeed.
type InsufficientStockError struct {
	Article   string
	Requested int
	Limit     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Article, e.Requested, e.Limit)
}

// TransportError describes a failed download. Status is zero when the
// request never got a response.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 && e.Err != nil {
		return fmt.Sprintf("download %s: http status %d: %v", e.URL, e.Status, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("download %s: http status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

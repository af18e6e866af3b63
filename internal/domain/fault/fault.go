// Package fault defines the error kinds shared by the bakery engine.
//
// Packages return their own typed errors (for example
// *stock.InsufficientStockError) which unwrap to one of the kinds below, so
// callers can branch with errors.Is and still reach the details with errors.As.
package fault

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned for unknown order, sale, product or customer ids.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a reservation exceeds the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when an operation is not legal from the current lifecycle state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrDuplicateDiscountCode is returned when a promotional code was already consumed.
	ErrDuplicateDiscountCode = errors.New("discount code already used")
	// ErrUnknownState is reported for unrecognized externally supplied state labels.
	ErrUnknownState = errors.New("unknown state")
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

// Validation returns a *ValidationError for field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

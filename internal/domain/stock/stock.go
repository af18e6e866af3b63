// Package stock owns the available quantity of each product.
//
// Reserve is an atomic check-and-decrement. Implementations must never read
// the quantity and write it back in two steps, since concurrent sales for the
// same product would oversell.
package stock

import (
	"context"
	"fmt"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

// Reason explains why a reservation was refused.
type Reason string

const (
	ReasonShort    Reason = "short"
	ReasonInactive Reason = "inactive"
	ReasonUnknown  Reason = "unknown"
)

// InsufficientStockError is returned when a product cannot cover a reservation.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
	Reason    Reason
}

func (e *InsufficientStockError) Error() string {
	switch e.Reason {
	case ReasonInactive:
		return fmt.Sprintf("product %s is inactive", e.ProductID)
	case ReasonUnknown:
		return fmt.Sprintf("product %s has no stock record", e.ProductID)
	default:
		return fmt.Sprintf("insufficient stock for product %s (available %d, requested %d)",
			e.ProductID, e.Available, e.Requested)
	}
}

func (e *InsufficientStockError) Unwrap() error { return fault.ErrInsufficientStock }

// Ledger reserves and restores product quantities.
type Ledger interface {
	// Reserve decrements the quantity of productID by qty, failing with
	// *InsufficientStockError when the product is unknown, inactive or short.
	Reserve(ctx context.Context, productID string, qty int) error
	// Restore increments the quantity of productID by qty. It has no
	// business failure mode: an absent baseline is treated as zero.
	Restore(ctx context.Context, productID string, qty int) error
}

// Restock is the manual restocking entry point.
func Restock(ctx context.Context, l Ledger, productID string, qty int) error {
	if productID == "" {
		return fault.Validation("product_id", "required")
	}
	if qty <= 0 {
		return fault.Validation("quantity", "must be greater than 0")
	}
	return l.Restore(ctx, productID, qty)
}

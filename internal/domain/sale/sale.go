// Package sale implements the stock-affecting sale transaction.
package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when no sale matches the lookup.
	ErrNotFound = errors.Wrap(fault.ErrNotFound, "sale")
	// ErrStateConflict is returned by Repository.UpdateState when the stored
	// state no longer matches the expected one.
	ErrStateConflict = errors.New("sale state changed concurrently")
)

// State is the lifecycle state of a sale.
type State string

const (
	StatePending   State = "PENDING"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
)

// PaymentMethod is how a sale was paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentTransfer   PaymentMethod = "TRANSFER"
)

var paymentMethods = map[string]PaymentMethod{
	"CASH":            PaymentCash,
	"CREDIT_CARD":     PaymentCreditCard,
	"DEBIT_CARD":      PaymentDebitCard,
	"TRANSFER":        PaymentTransfer,
	"EFECTIVO":        PaymentCash,
	"TARJETA_CREDITO": PaymentCreditCard,
	"TARJETA_DEBITO":  PaymentDebitCard,
	"TRANSFERENCIA":   PaymentTransfer,
}

// ParsePaymentMethod resolves a payment method label. An empty label means
// cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PaymentCash, nil
	}
	m, ok := paymentMethods[s]
	if !ok {
		return "", fault.Validation("payment_method", fmt.Sprintf("unsupported value %q", s))
	}
	return m, nil
}

// Sale is a committed, stock-affecting purchase.
type Sale struct {
	ID     string
	Number string
	// CustomerID is empty for anonymous sales.
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Items         []pricing.LineItem
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	State         State
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemsCount returns the number of lines.
func (s *Sale) ItemsCount() int { return len(s.Items) }

// TotalQuantity returns the number of units across all lines.
func (s *Sale) TotalQuantity() int { return pricing.TotalQuantity(s.Items) }

// TransitionError is returned when a sale cannot move between two states.
type TransitionError struct {
	SaleID string
	From   State
	To     State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("sale %s: cannot transition from %s to %s", e.SaleID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return fault.ErrInvalidTransition }

// Repository persists sales.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, id string) (*Sale, error)
	// UpdateState writes the sale's state, notes and update time only if the
	// stored state is still from. Otherwise it returns ErrStateConflict.
	UpdateState(ctx context.Context, s *Sale, from State) error
}

// AppendNote joins a note to existing notes with " | ".
func AppendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + " | " + note
}

package order

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
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.Wrap(fault.ErrNotFound, "order")
	// ErrStateConflict is returned by Repository.Update when the stored state
	// no longer matches the expected one.
	ErrStateConflict = errors.New("order state changed concurrently")
)

// DeliveryType is how an order reaches the customer.
type DeliveryType string

const (
	DeliveryPickup           DeliveryType = "PICKUP"
	DeliveryHome             DeliveryType = "DELIVERY"
	DeliveryNationalShipping DeliveryType = "NATIONAL_SHIPPING"
)

var deliveryTypes = map[string]DeliveryType{
	"PICKUP":            DeliveryPickup,
	"DELIVERY":          DeliveryHome,
	"NATIONAL_SHIPPING": DeliveryNationalShipping,
	"RETIRO_TIENDA":     DeliveryPickup,
	"ENVIO_NACIONAL":    DeliveryNationalShipping,
}

// ParseDeliveryType resolves a delivery type label. An empty label means
// pickup.
func ParseDeliveryType(s string) (DeliveryType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DeliveryPickup, nil
	}
	t, ok := deliveryTypes[s]
	if !ok {
		return "", fault.Validation("delivery_type", fmt.Sprintf("unsupported value %q", s))
	}
	return t, nil
}

// RequiresShipping reports whether the order leaves the store with a carrier.
func (t DeliveryType) RequiresShipping() bool {
	return t == DeliveryHome || t == DeliveryNationalShipping
}

// Order is a customer's pre-commitment to purchase. It does not hold stock.
type Order struct {
	ID     string
	Number string
	// CustomerID is empty when the email does not match a known customer.
	CustomerID        string
	CustomerEmail     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	RequestedDelivery *time.Time
	DeliveredAt       *time.Time
	DeliveryType      DeliveryType
	DeliveryAddress   string
	Items             []pricing.LineItem
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	ShippingCost      decimal.Decimal
	Total             decimal.Decimal
	State             State
	Notes             string
	TrackingCode      string
	// NotificationPending is set on every state change until a notifier
	// clears it.
	NotificationPending bool
	// SaleID links the sale created by conversion.
	SaleID string
}

// ItemsCount returns the number of lines.
func (o *Order) ItemsCount() int { return len(o.Items) }

// TotalQuantity returns the number of units across all lines.
func (o *Order) TotalQuantity() int { return pricing.TotalQuantity(o.Items) }

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// Update writes the lifecycle fields (state, delivery time, tracking
	// code, notification flag, sale link, update time) only if the stored
	// state is still from. Otherwise it returns ErrStateConflict.
	Update(ctx context.Context, o *Order, from State) error
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
)

const orderColumns = `id, number, customer_id, customer_email, delivery_type, delivery_address,
	requested_delivery, delivered_at, items, subtotal, discount, shipping_cost, total,
	state, notes, tracking_code, notification_pending, sale_id, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

	updateOrderSQL = `UPDATE orders SET
			state = $2, updated_at = $3, delivered_at = $4, tracking_code = $5,
			notification_pending = $6, sale_id = $7
		WHERE id = $1 AND state = $8`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*Orders)(nil)

// Orders is the order repository. Line items are stored as JSONB.
type Orders struct {
	s *Store
}

// Create persists a new order.
func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.s.q(ctx).Exec(ctx, createOrderSQL,
		o.ID, o.Number, nullString(o.CustomerID), o.CustomerEmail, string(o.DeliveryType), o.DeliveryAddress,
		o.RequestedDelivery, o.DeliveredAt, itemsJSON, o.Subtotal, o.Discount, o.ShippingCost, o.Total,
		string(o.State), o.Notes, o.TrackingCode, o.NotificationPending, nullString(o.SaleID), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (r *Orders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderByIDSQL, id)
}

func (r *Orders) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.get(ctx, getOrderByNumberSQL, number)
}

func (r *Orders) get(ctx context.Context, sql, key string) (*order.Order, error) {
	rows, err := r.s.q(ctx).Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}
	return &o, nil
}

// Update writes the lifecycle fields if the stored state is still from.
func (r *Orders) Update(ctx context.Context, o *order.Order, from order.State) error {
	q := r.s.q(ctx)
	tag, err := q.Exec(ctx, updateOrderSQL,
		o.ID, string(o.State), o.UpdatedAt, o.DeliveredAt, o.TrackingCode,
		o.NotificationPending, nullString(o.SaleID), string(from),
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", o.ID, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStateConflict
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                   order.Order
		customerID, saleID  *string
		deliveryType, state string
		itemsJSON           []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &customerID, &o.CustomerEmail, &deliveryType, &o.DeliveryAddress,
		&o.RequestedDelivery, &o.DeliveredAt, &itemsJSON, &o.Subtotal, &o.Discount, &o.ShippingCost, &o.Total,
		&state, &o.Notes, &o.TrackingCode, &o.NotificationPending, &saleID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.CustomerID = fromNull(customerID)
	o.SaleID = fromNull(saleID)
	o.DeliveryType = order.DeliveryType(deliveryType)
	o.State = order.State(state)
	o.Items, err = unmarshalItems(itemsJSON)
	return o, err
}

func unmarshalItems(data []byte) ([]pricing.LineItem, error) {
	var items []pricing.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling line items: %w", err)
	}
	return items, nil
}

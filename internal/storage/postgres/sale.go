package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bakery-engine/internal/domain/sale"
)

const saleColumns = `id, number, customer_id, customer_name, customer_email, items,
	subtotal, discount, total, payment_method, state, notes, created_at, updated_at`

const (
	createSaleSQL = `INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getSaleByIDSQL = `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	updateSaleStateSQL = `UPDATE sales SET state = $2, notes = $3, updated_at = $4
		WHERE id = $1 AND state = $5`

	saleExistsSQL = `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`
)

var _ sale.Repository = (*Sales)(nil)

// Sales is the sale repository. Line items are stored as JSONB.
type Sales struct {
	s *Store
}

func (r *Sales) Create(ctx context.Context, sl *sale.Sale) error {
	itemsJSON, err := json.Marshal(sl.Items)
	if err != nil {
		return fmt.Errorf("marshaling sale items: %w", err)
	}

	_, err = r.s.q(ctx).Exec(ctx, createSaleSQL,
		sl.ID, sl.Number, nullString(sl.CustomerID), sl.CustomerName, sl.CustomerEmail, itemsJSON,
		sl.Subtotal, sl.Discount, sl.Total, string(sl.PaymentMethod), string(sl.State), sl.Notes,
		sl.CreatedAt, sl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating sale %q: %w", sl.ID, err)
	}
	return nil
}

func (r *Sales) GetByID(ctx context.Context, id string) (*sale.Sale, error) {
	rows, err := r.s.q(ctx).Query(ctx, getSaleByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}

	sl, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}
	return &sl, nil
}

func (r *Sales) UpdateState(ctx context.Context, sl *sale.Sale, from sale.State) error {
	q := r.s.q(ctx)
	tag, err := q.Exec(ctx, updateSaleStateSQL, sl.ID, string(sl.State), sl.Notes, sl.UpdatedAt, string(from))
	if err != nil {
		return fmt.Errorf("updating sale %q: %w", sl.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, saleExistsSQL, sl.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking sale %q: %w", sl.ID, err)
	}
	if !exists {
		return sale.ErrNotFound
	}
	return sale.ErrStateConflict
}

func scanSale(row pgx.CollectableRow) (sale.Sale, error) {
	var (
		sl                   sale.Sale
		customerID           *string
		paymentMethod, state string
		itemsJSON            []byte
	)
	err := row.Scan(
		&sl.ID, &sl.Number, &customerID, &sl.CustomerName, &sl.CustomerEmail, &itemsJSON,
		&sl.Subtotal, &sl.Discount, &sl.Total, &paymentMethod, &state, &sl.Notes, &sl.CreatedAt, &sl.UpdatedAt,
	)
	if err != nil {
		return sl, err
	}
	sl.CustomerID = fromNull(customerID)
	sl.PaymentMethod = sale.PaymentMethod(paymentMethod)
	sl.State = sale.State(state)
	sl.Items, err = unmarshalItems(itemsJSON)
	return sl, err
}

package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/stock"
)

const productColumns = `id, code, name, description, price, category, shape, size,
	stock, stock_minimum, active, sugar_free, gluten_free, vegan, customizable, special_message`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY code`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	saveProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			category = EXCLUDED.category, shape = EXCLUDED.shape, size = EXCLUDED.size,
			stock = EXCLUDED.stock, stock_minimum = EXCLUDED.stock_minimum, active = EXCLUDED.active,
			sugar_free = EXCLUDED.sugar_free, gluten_free = EXCLUDED.gluten_free, vegan = EXCLUDED.vegan,
			customizable = EXCLUDED.customizable, special_message = EXCLUDED.special_message
		RETURNING id`

	reserveStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND active AND stock >= $2
		RETURNING stock`

	stockStatusSQL = `SELECT active, stock FROM products WHERE id = $1`

	restoreStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`
)

var (
	_ product.Repository = (*Products)(nil)
	_ stock.Ledger       = (*Products)(nil)
)

// Products is the catalog repository and stock ledger.
type Products struct {
	s *Store
}

// List returns all products ordered by code.
func (r *Products) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.s.q(ctx).Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *Products) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.s.q(ctx).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *Products) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.s.q(ctx).Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Save upserts a product by code. An existing product keeps its id.
func (r *Products) Save(ctx context.Context, p *product.Product) error {
	err := r.s.q(ctx).QueryRow(ctx, saveProductSQL,
		p.ID, p.Code, p.Name, p.Description, p.Price, string(p.Category), string(p.Shape), string(p.Size),
		p.Stock, p.StockMinimum, p.Active,
		p.Dietary.SugarFree, p.Dietary.GlutenFree, p.Dietary.Vegan, p.Customizable, p.SpecialMessage,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("saving product %q: %w", p.Code, err)
	}
	return nil
}

// Reserve decrements stock with a single conditional update. When no row
// matches, a second read tells apart unknown, inactive and short products.
func (r *Products) Reserve(ctx context.Context, productID string, qty int) error {
	q := r.s.q(ctx)

	var left int
	err := q.QueryRow(ctx, reserveStockSQL, productID, qty).Scan(&left)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("reserving stock for %q: %w", productID, err)
	}

	var (
		active    bool
		available int
	)
	err = q.QueryRow(ctx, stockStatusSQL, productID).Scan(&active, &available)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &stock.InsufficientStockError{ProductID: productID, Requested: qty, Reason: stock.ReasonUnknown}
	case err != nil:
		return fmt.Errorf("reading stock for %q: %w", productID, err)
	case !active:
		return &stock.InsufficientStockError{ProductID: productID, Requested: qty, Reason: stock.ReasonInactive}
	default:
		return &stock.InsufficientStockError{
			ProductID: productID,
			Available: available,
			Requested: qty,
			Reason:    stock.ReasonShort,
		}
	}
}

// Restore increments stock. A product without a row has nothing to restore
// into; that case is logged and ignored.
func (r *Products) Restore(ctx context.Context, productID string, qty int) error {
	tag, err := r.s.q(ctx).Exec(ctx, restoreStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("restoring stock for %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		zctx.From(ctx).Warn("Stock restore for unknown product",
			zap.String("product_id", productID),
			zap.Int("quantity", qty),
		)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p                     product.Product
		category, shape, size string
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Price, &category, &shape, &size,
		&p.Stock, &p.StockMinimum, &p.Active,
		&p.Dietary.SugarFree, &p.Dietary.GlutenFree, &p.Dietary.Vegan, &p.Customizable, &p.SpecialMessage,
	)
	p.Category = product.Category(category)
	p.Shape = product.Shape(shape)
	p.Size = product.Size(size)
	return p, err
}

package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/stock"
)

var (
	_ product.Repository = (*Products)(nil)
	_ stock.Ledger       = (*Products)(nil)
)

// Products is the in-memory catalog and stock ledger. Quantities live apart
// from the product records so Restore works without a catalog entry.
type Products struct {
	s *Store
}

// List returns all products ordered by code.
func (r *Products) List(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	r.s.read(ctx, func(d *state) {
		out = make([]product.Product, 0, len(d.products))
		for _, p := range d.products {
			p.Stock = d.stock[p.ID]
			out = append(out, p)
		}
	})
	slices.SortFunc(out, func(a, b product.Product) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// GetByID returns a single product.
func (r *Products) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var (
		p  product.Product
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		p, ok = d.products[id]
		p.Stock = d.stock[id]
	})
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products matching ids. Unknown ids are skipped.
func (r *Products) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	r.s.read(ctx, func(d *state) {
		for _, id := range ids {
			if p, ok := d.products[id]; ok {
				p.Stock = d.stock[id]
				out = append(out, p)
			}
		}
	})
	return out, nil
}

// Save upserts a product by code. An existing product keeps its id.
func (r *Products) Save(ctx context.Context, p *product.Product) error {
	return r.s.write(ctx, func(d *state) error {
		if id, ok := d.codes[p.Code]; ok {
			p.ID = id
		}
		d.products[p.ID] = *p
		d.codes[p.Code] = p.ID
		d.stock[p.ID] = p.Stock
		return nil
	})
}

// Reserve decrements stock under the data lock.
func (r *Products) Reserve(ctx context.Context, productID string, qty int) error {
	return r.s.write(ctx, func(d *state) error {
		p, ok := d.products[productID]
		switch {
		case !ok:
			return &stock.InsufficientStockError{ProductID: productID, Requested: qty, Reason: stock.ReasonUnknown}
		case !p.Active:
			return &stock.InsufficientStockError{ProductID: productID, Requested: qty, Reason: stock.ReasonInactive}
		}
		available := d.stock[productID]
		if available < qty {
			return &stock.InsufficientStockError{
				ProductID: productID,
				Available: available,
				Requested: qty,
				Reason:    stock.ReasonShort,
			}
		}
		d.stock[productID] = available - qty
		return nil
	})
}

// Restore increments stock, starting from zero for unknown ids.
func (r *Products) Restore(ctx context.Context, productID string, qty int) error {
	return r.s.write(ctx, func(d *state) error {
		d.stock[productID] += qty
		return nil
	})
}

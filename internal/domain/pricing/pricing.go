// Package pricing turns requested products into priced line items.
package pricing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/product"
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return fault.ErrNotFound }

// Request asks for a quantity of one product.
type Request struct {
	ProductID       string
	Quantity        int
	Personalization string
}

// LineItem is a priced line. UnitPrice is a snapshot taken at pricing time
// and does not follow later catalog changes.
type LineItem struct {
	ProductID       string           `json:"product_id"`
	ProductCode     string           `json:"product_code"`
	ProductName     string           `json:"product_name"`
	Category        product.Category `json:"category"`
	Quantity        int              `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Personalization string           `json:"personalization,omitempty"`
	Free            bool             `json:"free,omitempty"`
}

// IsCake reports whether the line's product is in a cake category.
func (l LineItem) IsCake() bool { return l.Category.IsCake() }

// Subtotal returns the sum of line subtotals.
func Subtotal(lines []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

// TotalQuantity returns the sum of line quantities.
func TotalQuantity(lines []LineItem) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// Requests rebuilds pricing requests from existing lines, keeping their
// personalization.
func Requests(lines []LineItem) []Request {
	reqs := make([]Request, len(lines))
	for i, l := range lines {
		reqs[i] = Request{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			Personalization: l.Personalization,
		}
	}
	return reqs
}

// Pricer prices requests against the catalog. It never touches stock.
type Pricer struct {
	products product.Repository
}

// NewPricer creates a Pricer backed by the product catalog.
func NewPricer(products product.Repository) *Pricer {
	return &Pricer{products: products}
}

// Price looks up one product and snapshots its price into a line.
func (p *Pricer) Price(ctx context.Context, req Request) (LineItem, error) {
	if err := validate(req); err != nil {
		return LineItem{}, err
	}
	prod, err := p.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return LineItem{}, &ProductNotFoundError{ProductID: req.ProductID}
		}
		return LineItem{}, errors.Wrap(err, "get product")
	}
	return newLine(prod, req), nil
}

// PriceAll prices a batch with a single catalog fetch, preserving request
// order. It fails on the first unknown product.
func (p *Pricer) PriceAll(ctx context.Context, reqs []Request) ([]LineItem, error) {
	if len(reqs) == 0 {
		return nil, fault.Validation("items", "required")
	}
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		if err := validate(req); err != nil {
			return nil, err
		}
		ids[i] = req.ProductID
	}

	fetched, err := p.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	lines := make([]LineItem, 0, len(reqs))
	for _, req := range reqs {
		prod, ok := byID[req.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: req.ProductID}
		}
		lines = append(lines, newLine(prod, req))
	}
	return lines, nil
}

func validate(req Request) error {
	if req.ProductID == "" {
		return fault.Validation("product_id", "required")
	}
	if req.Quantity <= 0 {
		return fault.Validation("quantity", fmt.Sprintf("must be greater than 0 for product %s", req.ProductID))
	}
	return nil
}

func newLine(p *product.Product, req Request) LineItem {
	return LineItem{
		ProductID:       p.ID,
		ProductCode:     p.Code,
		ProductName:     p.Name,
		Category:        p.Category,
		Quantity:        req.Quantity,
		UnitPrice:       p.Price,
		Subtotal:        p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Personalization: req.Personalization,
	}
}

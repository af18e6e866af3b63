// Package catalog loads product and customer seed data and writes it to a
// store.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/product"
)

// Concurrency bounds parallel writes during Seed.
const Concurrency = 8

type productJSON struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	Shape          string          `json:"shape"`
	Size           string          `json:"size"`
	Stock          int             `json:"stock"`
	StockMinimum   *int            `json:"stock_minimum"`
	Active         *bool           `json:"active"`
	SugarFree      bool            `json:"sugar_free"`
	GlutenFree     bool            `json:"gluten_free"`
	Vegan          bool            `json:"vegan"`
	Customizable   bool            `json:"customizable"`
	SpecialMessage bool            `json:"special_message"`
}

type customerJSON struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Role      string `json:"role"`
}

// Open opens path for reading, transparently decompressing files ending
// in .gz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(r io.Reader) ([]product.Product, error) {
	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}

	out := make([]product.Product, 0, len(raw))
	for i, p := range raw {
		if p.Code == "" || p.Name == "" {
			return nil, errors.Errorf("product %d: code and name are required", i)
		}
		if p.Price.IsNegative() || p.Stock < 0 {
			return nil, errors.Errorf("product %s: negative price or stock", p.Code)
		}
		minimum := product.DefaultStockMinimum
		if p.StockMinimum != nil {
			minimum = *p.StockMinimum
		}
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		out = append(out, product.Product{
			Code:         p.Code,
			Name:         p.Name,
			Description:  p.Description,
			Price:        p.Price.Round(2),
			Category:     product.Category(p.Category),
			Shape:        product.Shape(p.Shape),
			Size:         product.Size(p.Size),
			Stock:        p.Stock,
			StockMinimum: minimum,
			Active:       active,
			Dietary: product.Dietary{
				SugarFree:  p.SugarFree,
				GlutenFree: p.GlutenFree,
				Vegan:      p.Vegan,
			},
			Customizable:   p.Customizable,
			SpecialMessage: p.SpecialMessage,
		})
	}
	return out, nil
}

// DecodeCustomers reads a JSON array of customers. Student affiliation is
// derived from studentDomain.
func DecodeCustomers(r io.Reader, studentDomain string) ([]*customer.Profile, error) {
	var raw []customerJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode customers")
	}

	out := make([]*customer.Profile, 0, len(raw))
	for i, c := range raw {
		if c.Email == "" {
			return nil, errors.Errorf("customer %d: email is required", i)
		}
		var birth time.Time
		if c.BirthDate != "" {
			t, err := time.Parse(time.DateOnly, c.BirthDate)
			if err != nil {
				return nil, errors.Wrapf(err, "customer %s: birth_date", c.Email)
			}
			birth = t
		}
		p := customer.NewProfile("", c.Email, c.FirstName, c.LastName, birth, studentDomain)
		if c.Role != "" {
			p.Role = customer.Role(strings.ToUpper(c.Role))
		}
		out = append(out, p)
	}
	return out, nil
}

// SeedProducts upserts products by code, assigning fresh ids to new ones.
func SeedProducts(ctx context.Context, repo product.Repository, products []product.Product) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency)
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		g.Go(func() error {
			if err := repo.Save(ctx, p); err != nil {
				return errors.Wrapf(err, "save product %s", p.Code)
			}
			return nil
		})
	}
	return g.Wait()
}

// SeedCustomers upserts customers by email, assigning fresh ids to new ones.
func SeedCustomers(ctx context.Context, repo customer.Repository, customers []*customer.Profile) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency)
	now := time.Now().UTC()
	for _, c := range customers {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		g.Go(func() error {
			if err := repo.Save(ctx, c); err != nil {
				return errors.Wrapf(err, "save customer %s", c.Email)
			}
			return nil
		})
	}
	return g.Wait()
}

package sale

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/discount"
	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/stock"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

// fakeCatalog is a product repository and stock ledger over one map.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*product.Product
}

func newCatalog(products ...product.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*product.Product)}
	for i := range products {
		p := products[i]
		c.products[p.ID] = &p
	}
	return c
}

func (c *fakeCatalog) List(context.Context) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	return out, nil
}

func (c *fakeCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, err := c.GetByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Save(_ context.Context, p *product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.products[p.ID] = &cp
	return nil
}

func (c *fakeCatalog) Reserve(_ context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	switch {
	case !ok:
		return &stock.InsufficientStockError{ProductID: id, Requested: qty, Reason: stock.ReasonUnknown}
	case !p.Active:
		return &stock.InsufficientStockError{ProductID: id, Requested: qty, Reason: stock.ReasonInactive}
	case p.Stock < qty:
		return &stock.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: qty, Reason: stock.ReasonShort}
	}
	p.Stock -= qty
	return nil
}

func (c *fakeCatalog) Restore(_ context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

func (c *fakeCatalog) stockOf(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

type fakeSales struct {
	mu        sync.Mutex
	sales     map[string]Sale
	createErr error
}

func newSales() *fakeSales {
	return &fakeSales{sales: make(map[string]Sale)}
}

func (f *fakeSales) Create(_ context.Context, s *Sale) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales[s.ID] = *s
	return nil
}

func (f *fakeSales) GetByID(_ context.Context, id string) (*Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (f *fakeSales) UpdateState(_ context.Context, s *Sale, from State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sales[s.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.State != from {
		return ErrStateConflict
	}
	stored.State = s.State
	stored.Notes = s.Notes
	stored.UpdatedAt = s.UpdatedAt
	f.sales[s.ID] = stored
	return nil
}

type fakeCustomers struct {
	profiles []*customer.Profile
}

func (f *fakeCustomers) GetByEmail(_ context.Context, email string) (*customer.Profile, error) {
	for _, p := range f.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (f *fakeCustomers) GetByID(_ context.Context, id string) (*customer.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (f *fakeCustomers) Save(context.Context, *customer.Profile) error { return nil }

func (f *fakeCustomers) ConsumePromoCode(context.Context, string) error { return nil }

var now = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type fixture struct {
	catalog   *fakeCatalog
	sales     *fakeSales
	customers *fakeCustomers
	proc      *Processor
}

func newFixture(t *testing.T, products ...product.Product) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   newCatalog(products...),
		sales:     newSales(),
		customers: &fakeCustomers{},
	}
	clock := func() time.Time { return now }
	proc, err := NewProcessor(
		f.sales,
		f.customers,
		pricing.NewPricer(f.catalog),
		f.catalog,
		discount.NewCalculator(clock),
		txn.Direct,
		WithClock(clock),
	)
	require.NoError(t, err)
	f.proc = proc
	return f
}

func prod(id string, price string, stock int) product.Product {
	return product.Product{
		ID:           id,
		Code:         "PT" + id,
		Name:         "Product " + id,
		Price:        d(price),
		Category:     product.CategoryTraditional,
		Stock:        stock,
		StockMinimum: product.DefaultStockMinimum,
		Active:       true,
	}
}

func TestCreate_ReservesStock(t *testing.T) {
	f := newFixture(t, prod("p", "1000", 5))

	s, err := f.proc.Create(context.Background(), CreateRequest{
		Items: []pricing.Request{{ProductID: "p", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.catalog.stockOf("p"))
	assert.True(t, d("3000").Equal(s.Subtotal))
	assert.True(t, s.Discount.IsZero())
	assert.True(t, d("3000").Equal(s.Total))
	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, PaymentCash, s.PaymentMethod)
	assert.Regexp(t, `^V-[0-9A-Z]{26}$`, s.Number)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, 1, s.ItemsCount())
	assert.Equal(t, 3, s.TotalQuantity())

	stored, err := f.proc.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Number, stored.Number)
}

func TestCreate_SecondSaleShortFails(t *testing.T) {
	f := newFixture(t, prod("p", "1000", 5))
	ctx := context.Background()

	_, err := f.proc.Create(ctx, CreateRequest{Items: []pricing.Request{{ProductID: "p", Quantity: 3}}})
	require.NoError(t, err)

	_, err = f.proc.Create(ctx, CreateRequest{Items: []pricing.Request{{ProductID: "p", Quantity: 3}}})
	require.ErrorIs(t, err, fault.ErrInsufficientStock)

	var stockErr *stock.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p", stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 2, f.catalog.stockOf("p"))
	assert.Len(t, f.sales.sales, 1)
}

func TestCreate_AllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		items   []pricing.Request
		wantErr error
	}{
		{
			name:    "last item short",
			items:   []pricing.Request{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}, {ProductID: "c", Quantity: 9}},
			wantErr: fault.ErrInsufficientStock,
		},
		{
			name:    "inactive product",
			items:   []pricing.Request{{ProductID: "a", Quantity: 1}, {ProductID: "off", Quantity: 1}},
			wantErr: fault.ErrInsufficientStock,
		},
		{
			name:    "unknown product",
			items:   []pricing.Request{{ProductID: "a", Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
			wantErr: fault.ErrNotFound,
		},
		{
			name:    "invalid quantity",
			items:   []pricing.Request{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 0}},
			wantErr: fault.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off := prod("off", "10", 10)
			off.Active = false
			f := newFixture(t, prod("a", "10", 5), prod("b", "20", 5), prod("c", "30", 5), off)

			_, err := f.proc.Create(context.Background(), CreateRequest{Items: tt.items})
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 5, f.catalog.stockOf("a"))
			assert.Equal(t, 5, f.catalog.stockOf("b"))
			assert.Equal(t, 5, f.catalog.stockOf("c"))
			assert.Empty(t, f.sales.sales)
		})
	}
}

func TestCreate_RepositoryFailureReleasesStock(t *testing.T) {
	f := newFixture(t, prod("a", "10", 5))
	f.sales.createErr = errors.New("disk full")

	_, err := f.proc.Create(context.Background(), CreateRequest{Items: []pricing.Request{{ProductID: "a", Quantity: 4}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create sale")
	assert.Equal(t, 5, f.catalog.stockOf("a"))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, prod("a", "10", 5))

	_, err := f.proc.Create(context.Background(), CreateRequest{})
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = f.proc.Create(context.Background(), CreateRequest{
		PaymentMethod: "BITCOIN",
		Items:         []pricing.Request{{ProductID: "a", Quantity: 1}},
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
	assert.Equal(t, 5, f.catalog.stockOf("a"))
}

func TestCreate_CustomerDiscounts(t *testing.T) {
	cake := prod("cake", "40000", 5)
	cake.Category = product.CategoryRoundCakes

	tests := []struct {
		name         string
		profile      *customer.Profile
		req          CreateRequest
		wantDiscount string
		wantName     string
		wantFree     bool
	}{
		{
			name:         "senior by email",
			profile:      &customer.Profile{ID: "c1", Email: "old@example.com", FirstName: "Rosa", LastName: "Diaz", BirthDate: now.AddDate(-60, 0, -3)},
			req:          CreateRequest{CustomerEmail: "old@example.com", Items: []pricing.Request{{ProductID: "a", Quantity: 2}}},
			wantDiscount: "10",
			wantName:     "Rosa Diaz",
		},
		{
			name:         "student birthday gets the cake",
			profile:      &customer.Profile{ID: "c2", Email: "ana@duoc.cl", Student: true, BirthDate: now.AddDate(-20, 0, 0)},
			req:          CreateRequest{CustomerID: "c2", CustomerName: "Ana", Items: []pricing.Request{{ProductID: "a", Quantity: 1}, {ProductID: "cake", Quantity: 1}}},
			wantDiscount: "40000",
			wantName:     "Ana",
			wantFree:     true,
		},
		{
			name:         "unknown email is anonymous",
			req:          CreateRequest{CustomerEmail: "who@example.com", CustomerName: "Walk-in", Items: []pricing.Request{{ProductID: "a", Quantity: 1}}},
			wantDiscount: "0",
			wantName:     "Walk-in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, prod("a", "10", 5), cake)
			if tt.profile != nil {
				f.customers.profiles = append(f.customers.profiles, tt.profile)
			}

			s, err := f.proc.Create(context.Background(), tt.req)
			require.NoError(t, err)

			assert.True(t, d(tt.wantDiscount).Equal(s.Discount), "discount %s", s.Discount)
			assert.True(t, s.Subtotal.Sub(s.Discount).Equal(s.Total))
			assert.Equal(t, tt.wantName, s.CustomerName)
			if tt.profile != nil {
				assert.Equal(t, tt.profile.ID, s.CustomerID)
			} else {
				assert.Empty(t, s.CustomerID)
				assert.Equal(t, tt.req.CustomerEmail, s.CustomerEmail)
			}
			free := false
			for _, l := range s.Items {
				free = free || l.Free
			}
			assert.Equal(t, tt.wantFree, free)
		})
	}
}

func TestCreate_UnknownCustomerIDFails(t *testing.T) {
	f := newFixture(t, prod("a", "10", 5))

	_, err := f.proc.Create(context.Background(), CreateRequest{
		CustomerID: "missing",
		Items:      []pricing.Request{{ProductID: "a", Quantity: 1}},
	})
	require.ErrorIs(t, err, fault.ErrNotFound)
	assert.Equal(t, 5, f.catalog.stockOf("a"))
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	f := newFixture(t, prod("a", "10", 5), prod("b", "20", 5))
	ctx := context.Background()

	s, err := f.proc.Create(ctx, CreateRequest{
		Notes: "counter sale",
		Items: []pricing.Request{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, f.catalog.stockOf("a"))
	require.Equal(t, 4, f.catalog.stockOf("b"))

	cancelled, err := f.proc.Cancel(ctx, s.ID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.State)
	assert.Equal(t, "counter sale | CANCELLED: customer request", cancelled.Notes)
	assert.Equal(t, 5, f.catalog.stockOf("a"))
	assert.Equal(t, 5, f.catalog.stockOf("b"))

	_, err = f.proc.Cancel(ctx, s.ID, "again")
	require.ErrorIs(t, err, fault.ErrInvalidTransition)

	var trErr *TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StateCancelled, trErr.From)
	assert.Equal(t, 5, f.catalog.stockOf("a"))
	assert.Equal(t, 5, f.catalog.stockOf("b"))
}

func TestCancel_Errors(t *testing.T) {
	f := newFixture(t, prod("a", "10", 5))
	ctx := context.Background()

	_, err := f.proc.Cancel(ctx, "missing", "x")
	assert.ErrorIs(t, err, fault.ErrNotFound)

	f.sales.sales["pending"] = Sale{ID: "pending", State: StatePending}
	_, err = f.proc.Cancel(ctx, "pending", "x")
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestCancel_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t, prod("a", "10", 10))
	ctx := context.Background()

	s, err := f.proc.Create(ctx, CreateRequest{Items: []pricing.Request{{ProductID: "a", Quantity: 4}}})
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.proc.Cancel(ctx, s.ID, "race"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 10, f.catalog.stockOf("a"))
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{in: "", want: PaymentCash},
		{in: "credit_card", want: PaymentCreditCard},
		{in: "TARJETA_DEBITO", want: PaymentDebitCard},
		{in: " transferencia ", want: PaymentTransfer},
		{in: "CHEQUE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, fault.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("totals are consistent and cancel conserves stock", prop.ForAll(
		func(qtyA, qtyB int, centsA, centsB int64, senior bool) bool {
			pa := prod("a", decimal.New(centsA, -2).String(), 50)
			pb := prod("b", decimal.New(centsB, -2).String(), 50)
			f := newFixture(t, pa, pb)

			birth := now.AddDate(-30, 0, -1)
			if senior {
				birth = now.AddDate(-70, 0, -1)
			}
			f.customers.profiles = []*customer.Profile{{ID: "c", Email: "c@example.com", BirthDate: birth}}

			ctx := context.Background()
			s, err := f.proc.Create(ctx, CreateRequest{
				CustomerID: "c",
				Items:      []pricing.Request{{ProductID: "a", Quantity: qtyA}, {ProductID: "b", Quantity: qtyB}},
			})
			if err != nil {
				return false
			}
			if !s.Subtotal.Equal(pricing.Subtotal(s.Items)) || !s.Total.Equal(s.Subtotal.Sub(s.Discount)) {
				return false
			}
			if s.Discount.IsNegative() || s.Discount.GreaterThan(s.Subtotal) {
				return false
			}
			if f.catalog.stockOf("a") != 50-qtyA || f.catalog.stockOf("b") != 50-qtyB {
				return false
			}

			if _, err := f.proc.Cancel(ctx, s.ID, "property"); err != nil {
				return false
			}
			return f.catalog.stockOf("a") == 50 && f.catalog.stockOf("b") == 50
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 20),
		gen.Int64Range(1, 10_000_000),
		gen.Int64Range(1, 10_000_000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

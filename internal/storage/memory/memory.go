// Package memory is an in-process store for the bakery engine.
//
// Transactions are serialized by a single lock and roll back to a snapshot
// taken when they start. Calls made outside a transaction take the same lock,
// so each one runs as a single-statement transaction and never observes or
// interleaves with an open one. It backs local runs and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/sale"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

var _ txn.UnitOfWork = (*Store)(nil)

type txKey struct{}

type state struct {
	products  map[string]product.Product
	codes     map[string]string
	stock     map[string]int
	customers map[string]customer.Profile
	emails    map[string]string
	orders    map[string]order.Order
	numbers   map[string]string
	sales     map[string]sale.Sale
}

func newState() state {
	return state{
		products:  make(map[string]product.Product),
		codes:     make(map[string]string),
		stock:     make(map[string]int),
		customers: make(map[string]customer.Profile),
		emails:    make(map[string]string),
		orders:    make(map[string]order.Order),
		numbers:   make(map[string]string),
		sales:     make(map[string]sale.Sale),
	}
}

// clone copies the maps. Stored values own their slices, so a shallow map
// copy is a full snapshot.
func (s state) clone() state {
	return state{
		products:  maps.Clone(s.products),
		codes:     maps.Clone(s.codes),
		stock:     maps.Clone(s.stock),
		customers: maps.Clone(s.customers),
		emails:    maps.Clone(s.emails),
		orders:    maps.Clone(s.orders),
		numbers:   maps.Clone(s.numbers),
		sales:     maps.Clone(s.sales),
	}
}

// Store holds all engine data in memory.
type Store struct {
	txMu sync.Mutex // serializes transactions
	mu   sync.Mutex // guards data
	data state
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// RunInTx runs fn alone. If fn fails, every change it made is discarded.
// Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Products returns the catalog repository and stock ledger.
func (s *Store) Products() *Products { return &Products{s: s} }

// Customers returns the customer repository.
func (s *Store) Customers() *Customers { return &Customers{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

// Sales returns the sale repository.
func (s *Store) Sales() *Sales { return &Sales{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// lock guards one repository call. Outside a transaction it also holds txMu.
func (s *Store) lock(ctx context.Context) (unlock func()) {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		s.mu.Lock()
		return func() {
			s.mu.Unlock()
			s.txMu.Unlock()
		}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) read(ctx context.Context, fn func(d *state)) {
	defer s.lock(ctx)()
	fn(&s.data)
}

func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	defer s.lock(ctx)()
	return fn(&s.data)
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	if o.RequestedDelivery != nil {
		t := *o.RequestedDelivery
		o.RequestedDelivery = &t
	}
	return o
}

func cloneSale(sl sale.Sale) sale.Sale {
	sl.Items = slices.Clone(sl.Items)
	return sl
}

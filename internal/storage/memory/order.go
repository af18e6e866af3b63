package memory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/sale"
)

var (
	_ order.Repository = (*Orders)(nil)
	_ sale.Repository  = (*Sales)(nil)
)

// Orders is the in-memory order repository.
type Orders struct {
	s *Store
}

func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.orders[o.ID]; ok {
			return errors.Errorf("order %s already exists", o.ID)
		}
		if _, ok := d.numbers[o.Number]; ok {
			return errors.Errorf("order number %s already exists", o.Number)
		}
		d.orders[o.ID] = cloneOrder(*o)
		d.numbers[o.Number] = o.ID
		return nil
	})
}

func (r *Orders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var (
		o  order.Order
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		if o, ok = d.orders[id]; ok {
			o = cloneOrder(o)
		}
	})
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (r *Orders) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var (
		id string
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		id, ok = d.numbers[number]
	})
	if !ok {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Orders) Update(ctx context.Context, o *order.Order, from order.State) error {
	return r.s.write(ctx, func(d *state) error {
		stored, ok := d.orders[o.ID]
		if !ok {
			return order.ErrNotFound
		}
		if stored.State != from {
			return order.ErrStateConflict
		}
		stored.State = o.State
		stored.UpdatedAt = o.UpdatedAt
		stored.DeliveredAt = o.DeliveredAt
		stored.TrackingCode = o.TrackingCode
		stored.NotificationPending = o.NotificationPending
		stored.SaleID = o.SaleID
		d.orders[o.ID] = cloneOrder(stored)
		return nil
	})
}

// Sales is the in-memory sale repository.
type Sales struct {
	s *Store
}

func (r *Sales) Create(ctx context.Context, sl *sale.Sale) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.sales[sl.ID]; ok {
			return errors.Errorf("sale %s already exists", sl.ID)
		}
		d.sales[sl.ID] = cloneSale(*sl)
		return nil
	})
}

func (r *Sales) GetByID(ctx context.Context, id string) (*sale.Sale, error) {
	var (
		sl sale.Sale
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		if sl, ok = d.sales[id]; ok {
			sl = cloneSale(sl)
		}
	})
	if !ok {
		return nil, sale.ErrNotFound
	}
	return &sl, nil
}

func (r *Sales) UpdateState(ctx context.Context, sl *sale.Sale, from sale.State) error {
	return r.s.write(ctx, func(d *state) error {
		stored, ok := d.sales[sl.ID]
		if !ok {
			return sale.ErrNotFound
		}
		if stored.State != from {
			return sale.ErrStateConflict
		}
		stored.State = sl.State
		stored.Notes = sl.Notes
		stored.UpdatedAt = sl.UpdatedAt
		d.sales[sl.ID] = stored
		return nil
	})
}

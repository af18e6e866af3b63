package memory

import (
	"context"
	"strings"

	"github.com/xenking/bakery-engine/internal/domain/customer"
)

var _ customer.Repository = (*Customers)(nil)

// Customers is the in-memory customer repository. Emails are matched
// case-insensitively.
type Customers struct {
	s *Store
}

func (r *Customers) GetByEmail(ctx context.Context, email string) (*customer.Profile, error) {
	var (
		p  customer.Profile
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		var id string
		if id, ok = d.emails[strings.ToLower(email)]; ok {
			p, ok = d.customers[id]
		}
	})
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &p, nil
}

func (r *Customers) GetByID(ctx context.Context, id string) (*customer.Profile, error) {
	var (
		p  customer.Profile
		ok bool
	)
	r.s.read(ctx, func(d *state) {
		p, ok = d.customers[id]
	})
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &p, nil
}

// Save upserts by email. An existing customer keeps its id.
func (r *Customers) Save(ctx context.Context, p *customer.Profile) error {
	return r.s.write(ctx, func(d *state) error {
		key := strings.ToLower(p.Email)
		if id, ok := d.emails[key]; ok {
			p.ID = id
		}
		d.customers[p.ID] = *p
		d.emails[key] = p.ID
		return nil
	})
}

func (r *Customers) ConsumePromoCode(ctx context.Context, id string) error {
	return r.s.write(ctx, func(d *state) error {
		p, ok := d.customers[id]
		if !ok {
			return customer.ErrNotFound
		}
		if p.PromoCodeUsed {
			return customer.ErrPromoCodeConsumed
		}
		p.PromoCodeUsed = true
		d.customers[id] = p
		return nil
	})
}

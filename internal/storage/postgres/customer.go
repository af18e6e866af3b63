package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bakery-engine/internal/domain/customer"
)

const customerColumns = `id, email, first_name, last_name, birth_date, role, promo_code_used, student, created_at`

const (
	getCustomerByEmailSQL = `SELECT ` + customerColumns + ` FROM customers WHERE LOWER(email) = LOWER($1)`

	getCustomerByIDSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	saveCustomerSQL = `INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ((LOWER(email))) DO UPDATE SET
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			birth_date = EXCLUDED.birth_date, role = EXCLUDED.role,
			promo_code_used = EXCLUDED.promo_code_used, student = EXCLUDED.student
		RETURNING id`

	consumePromoCodeSQL = `UPDATE customers SET promo_code_used = TRUE WHERE id = $1 AND NOT promo_code_used`

	customerExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`
)

var _ customer.Repository = (*Customers)(nil)

// Customers is the customer repository. Emails are matched
// case-insensitively.
type Customers struct {
	s *Store
}

func (r *Customers) GetByEmail(ctx context.Context, email string) (*customer.Profile, error) {
	return r.get(ctx, getCustomerByEmailSQL, email)
}

func (r *Customers) GetByID(ctx context.Context, id string) (*customer.Profile, error) {
	return r.get(ctx, getCustomerByIDSQL, id)
}

func (r *Customers) get(ctx context.Context, sql, key string) (*customer.Profile, error) {
	rows, err := r.s.q(ctx).Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", key, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", key, err)
	}
	return &p, nil
}

// Save upserts by email. An existing customer keeps its id.
func (r *Customers) Save(ctx context.Context, p *customer.Profile) error {
	var birth *time.Time
	if !p.BirthDate.IsZero() {
		birth = &p.BirthDate
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	err := r.s.q(ctx).QueryRow(ctx, saveCustomerSQL,
		p.ID, p.Email, p.FirstName, p.LastName, birth, string(p.Role), p.PromoCodeUsed, p.Student, created,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("saving customer %q: %w", p.Email, err)
	}
	return nil
}

func (r *Customers) ConsumePromoCode(ctx context.Context, id string) error {
	q := r.s.q(ctx)
	tag, err := q.Exec(ctx, consumePromoCodeSQL, id)
	if err != nil {
		return fmt.Errorf("consuming promo code for %q: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, customerExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking customer %q: %w", id, err)
	}
	if !exists {
		return customer.ErrNotFound
	}
	return customer.ErrPromoCodeConsumed
}

func scanCustomer(row pgx.CollectableRow) (customer.Profile, error) {
	var (
		p     customer.Profile
		birth *time.Time
		role  string
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &birth, &role, &p.PromoCodeUsed, &p.Student, &p.CreatedAt,
	)
	if birth != nil {
		p.BirthDate = *birth
	}
	p.Role = customer.Role(role)
	return p, err
}

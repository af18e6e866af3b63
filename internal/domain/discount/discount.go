// Package discount computes customer discount eligibility.
//
// Percentage discounts never stack: the largest applicable rate wins. The
// birthday free-cake grant is added on top of the percentage.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
)

// SeniorAge is the minimum age for the senior discount.
const SeniorAge = 50

var (
	// SeniorRate is the percentage granted to customers aged SeniorAge or older.
	SeniorRate = decimal.NewFromInt(50)
	// PromoRate is the percentage granted after consuming the promo code.
	PromoRate = decimal.NewFromInt(10)

	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Result is the discount applied to a set of lines.
type Result struct {
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	// FreeIndex is the index of the line granted for free, or -1.
	FreeIndex int
}

// Calculator computes discounts for a customer.
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a Calculator. A nil clock means time.Now.
func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Exclusive returns the largest of the given rates, or zero.
func Exclusive(rates ...decimal.Decimal) decimal.Decimal {
	best := zero
	for _, r := range rates {
		if r.GreaterThan(best) {
			best = r
		}
	}
	return best
}

// PercentageFor returns the discount percentage in [0,100] for the customer.
// A nil customer gets no discount.
func (c *Calculator) PercentageFor(p *customer.Profile) decimal.Decimal {
	if p == nil {
		return zero
	}
	senior := zero
	if p.Age(c.now()) >= SeniorAge {
		senior = SeniorRate
	}
	promo := zero
	if p.PromoCodeUsed {
		promo = PromoRate
	}
	return Exclusive(senior, promo)
}

// FreeItemGrant returns the index of the line the customer gets for free. The
// customer must be a student whose birthday is today, and the line is the
// most expensive cake by unit price.
func (c *Calculator) FreeItemGrant(p *customer.Profile, lines []pricing.LineItem) (int, bool) {
	if p == nil || !p.Student || !p.IsBirthday(c.now()) {
		return -1, false
	}
	idx := -1
	for i, l := range lines {
		if !l.IsCake() {
			continue
		}
		if idx < 0 || l.UnitPrice.GreaterThan(lines[idx].UnitPrice) {
			idx = i
		}
	}
	return idx, idx >= 0
}

// Compute applies the customer's percentage and free-item grant to lines.
// The granted line is flagged Free in place.
func (c *Calculator) Compute(p *customer.Profile, lines []pricing.LineItem) Result {
	res := Result{Percentage: c.PercentageFor(p), FreeIndex: -1}
	if idx, ok := c.FreeItemGrant(p, lines); ok {
		lines[idx].Free = true
		res.FreeIndex = idx
	}
	res.Amount = Apply(pricing.Subtotal(lines), res.Percentage, lines, res.FreeIndex)
	return res
}

// Apply returns the discount amount: subtotal × pct / 100 plus the subtotal of
// the free line, if any. The amount is rounded to 2 places and clamped to
// [0, subtotal].
func Apply(subtotal, pct decimal.Decimal, lines []pricing.LineItem, freeIndex int) decimal.Decimal {
	amount := subtotal.Mul(pct).Div(hundred)
	if freeIndex >= 0 && freeIndex < len(lines) {
		amount = amount.Add(lines[freeIndex].Subtotal)
	}
	amount = floorAtZero(amount).Round(2)
	return decimal.Min(amount, subtotal)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}

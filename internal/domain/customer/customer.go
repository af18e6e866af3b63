package customer

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

var (
	// ErrNotFound is returned when no customer matches the lookup.
	ErrNotFound = errors.Wrap(fault.ErrNotFound, "customer")
	// ErrPromoCodeConsumed is returned by Repository.ConsumePromoCode when the
	// flag was already set.
	ErrPromoCodeConsumed = errors.New("promo code already consumed")
)

// Role is the access role of a customer account.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// DefaultStudentDomain is the institutional email domain that grants the
// student affiliation.
const DefaultStudentDomain = "duoc.cl"

// Profile is the discount-relevant view of a customer account.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	// BirthDate is zero when unknown.
	BirthDate     time.Time
	Role          Role
	PromoCodeUsed bool
	Student       bool
	CreatedAt     time.Time
}

// NewProfile builds a profile, deriving the student affiliation from the email
// domain.
func NewProfile(id, email, firstName, lastName string, birthDate time.Time, studentDomain string) *Profile {
	email = strings.ToLower(strings.TrimSpace(email))
	return &Profile{
		ID:        id,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		BirthDate: birthDate,
		Role:      RoleCustomer,
		Student:   studentDomain != "" && strings.HasSuffix(email, "@"+strings.ToLower(studentDomain)),
	}
}

// Age returns the number of full years between the birth date and now.
func (p *Profile) Age(now time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

// IsBirthday reports whether now falls on the customer's birth month and day.
func (p *Profile) IsBirthday(now time.Time) bool {
	if p.BirthDate.IsZero() {
		return false
	}
	return p.BirthDate.Month() == now.Month() && p.BirthDate.Day() == now.Day()
}

// DisplayName returns "First Last", or an empty string when both are missing.
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Repository provides customer lookups and the writes the engine needs.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	// ConsumePromoCode sets the promo-code flag only if it is still unset,
	// returning ErrPromoCodeConsumed otherwise.
	ConsumePromoCode(ctx context.Context, id string) error
}

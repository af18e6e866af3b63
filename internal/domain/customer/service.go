package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

// PromoCode is the one-time promotional code accepted by the bakery.
const PromoCode = "FELICES50"

// DuplicatePromoCodeError indicates the customer already consumed the code.
type DuplicatePromoCodeError struct {
	Email string
	Code  string
}

func (e *DuplicatePromoCodeError) Error() string {
	return fmt.Sprintf("code %s already used by %s", e.Code, e.Email)
}

func (e *DuplicatePromoCodeError) Unwrap() error { return fault.ErrDuplicateDiscountCode }

// Service applies customer-facing discount operations.
type Service struct {
	customers Repository
	uow       txn.UnitOfWork
}

// NewService creates a customer Service. A nil uow runs without a
// transaction.
func NewService(customers Repository, uow txn.UnitOfWork) *Service {
	if uow == nil {
		uow = txn.Direct
	}
	return &Service{customers: customers, uow: uow}
}

// ApplyPromoCode consumes the promotional code for the customer identified by
// email. The flag flips at most once; a second call fails with
// *DuplicatePromoCodeError.
func (s *Service) ApplyPromoCode(ctx context.Context, email, code string) (*Profile, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fault.Validation("code", "required")
	}
	if code != PromoCode {
		return nil, fault.Validation("code", "unknown promotional code")
	}

	var profile *Profile
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.customers.GetByEmail(ctx, email)
		if err != nil {
			return errors.Wrap(err, "get customer")
		}
		if p.PromoCodeUsed {
			return &DuplicatePromoCodeError{Email: p.Email, Code: code}
		}
		if err := s.customers.ConsumePromoCode(ctx, p.ID); err != nil {
			if errors.Is(err, ErrPromoCodeConsumed) {
				return &DuplicatePromoCodeError{Email: p.Email, Code: code}
			}
			return errors.Wrap(err, "consume promo code")
		}
		p.PromoCodeUsed = true
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Promo code applied",
		zap.String("customer_id", profile.ID),
		zap.String("code", code),
	)
	return profile, nil
}

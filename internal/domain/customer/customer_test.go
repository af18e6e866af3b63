package customer

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

type mockCustomerRepo struct {
	byEmail     map[string]*Profile
	consumeErr  error
	consumedIDs []string
}

func (m *mockCustomerRepo) GetByEmail(_ context.Context, email string) (*Profile, error) {
	p, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*Profile, error) {
	for _, p := range m.byEmail {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCustomerRepo) Save(_ context.Context, p *Profile) error {
	cp := *p
	m.byEmail[p.Email] = &cp
	return nil
}

func (m *mockCustomerRepo) ConsumePromoCode(_ context.Context, id string) error {
	if m.consumeErr != nil {
		return m.consumeErr
	}
	for _, p := range m.byEmail {
		if p.ID == id {
			if p.PromoCodeUsed {
				return ErrPromoCodeConsumed
			}
			p.PromoCodeUsed = true
			m.consumedIDs = append(m.consumedIDs, id)
			return nil
		}
	}
	return ErrNotFound
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewProfile_StudentDomain(t *testing.T) {
	tests := []struct {
		email  string
		domain string
		want   bool
	}{
		{"ana@duoc.cl", DefaultStudentDomain, true},
		{"  ANA@DUOC.CL ", DefaultStudentDomain, true},
		{"ana@profesor.duoc.cl", DefaultStudentDomain, false},
		{"ana@gmail.com", DefaultStudentDomain, false},
		{"ana@duoc.cl", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			p := NewProfile("c1", tt.email, "Ana", "Rojas", time.Time{}, tt.domain)
			assert.Equal(t, tt.want, p.Student)
			assert.Equal(t, RoleCustomer, p.Role)
		})
	}
}

func TestProfile_Age(t *testing.T) {
	now := date(2025, 6, 15)

	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{name: "unknown birth date", birth: time.Time{}, want: 0},
		{name: "birthday today", birth: date(1975, 6, 15), want: 50},
		{name: "birthday tomorrow", birth: date(1975, 6, 16), want: 49},
		{name: "birthday last month", birth: date(1975, 5, 20), want: 50},
		{name: "birthday next month", birth: date(1975, 7, 1), want: 49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Profile{BirthDate: tt.birth}
			assert.Equal(t, tt.want, p.Age(now))
		})
	}
}

func TestProfile_IsBirthday(t *testing.T) {
	now := date(2025, 3, 9)

	assert.True(t, (&Profile{BirthDate: date(2001, 3, 9)}).IsBirthday(now))
	assert.False(t, (&Profile{BirthDate: date(2001, 3, 10)}).IsBirthday(now))
	assert.False(t, (&Profile{}).IsBirthday(now))
}

func TestProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Rojas", (&Profile{FirstName: "Ana", LastName: "Rojas"}).DisplayName())
	assert.Equal(t, "Ana", (&Profile{FirstName: "Ana"}).DisplayName())
	assert.Empty(t, (&Profile{}).DisplayName())
}

func newRepo(profiles ...*Profile) *mockCustomerRepo {
	m := &mockCustomerRepo{byEmail: make(map[string]*Profile)}
	for _, p := range profiles {
		m.byEmail[p.Email] = p
	}
	return m
}

func TestApplyPromoCode(t *testing.T) {
	repo := newRepo(&Profile{ID: "c1", Email: "ana@example.com"})
	svc := NewService(repo, txn.Direct)

	p, err := svc.ApplyPromoCode(context.Background(), "ana@example.com", " felices50 ")
	require.NoError(t, err)
	assert.True(t, p.PromoCodeUsed)
	assert.Equal(t, []string{"c1"}, repo.consumedIDs)
}

func TestApplyPromoCode_NilUnitOfWork(t *testing.T) {
	repo := newRepo(&Profile{ID: "c1", Email: "ana@example.com"})
	svc := NewService(repo, nil)

	p, err := svc.ApplyPromoCode(context.Background(), "ana@example.com", PromoCode)
	require.NoError(t, err)
	assert.True(t, p.PromoCodeUsed)
}

func TestApplyPromoCode_SecondUseFails(t *testing.T) {
	repo := newRepo(&Profile{ID: "c1", Email: "ana@example.com"})
	svc := NewService(repo, txn.Direct)

	_, err := svc.ApplyPromoCode(context.Background(), "ana@example.com", PromoCode)
	require.NoError(t, err)

	_, err = svc.ApplyPromoCode(context.Background(), "ana@example.com", PromoCode)
	require.ErrorIs(t, err, fault.ErrDuplicateDiscountCode)

	var dupErr *DuplicatePromoCodeError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, PromoCode, dupErr.Code)
	assert.Len(t, repo.consumedIDs, 1)
}

func TestApplyPromoCode_ConcurrentConsumeDetected(t *testing.T) {
	// The profile read says unused, but the conditional write loses the race.
	repo := newRepo(&Profile{ID: "c1", Email: "ana@example.com"})
	repo.consumeErr = ErrPromoCodeConsumed
	svc := NewService(repo, txn.Direct)

	_, err := svc.ApplyPromoCode(context.Background(), "ana@example.com", PromoCode)
	require.ErrorIs(t, err, fault.ErrDuplicateDiscountCode)
}

func TestApplyPromoCode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		code    string
		repoErr error
		wantErr error
	}{
		{name: "unknown code", email: "ana@example.com", code: "BOGUS", wantErr: fault.ErrValidation},
		{name: "empty code", email: "ana@example.com", code: "  ", wantErr: fault.ErrValidation},
		{name: "unknown customer", email: "nobody@example.com", code: PromoCode, wantErr: fault.ErrNotFound},
		{name: "store failure", email: "ana@example.com", code: PromoCode, repoErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(&Profile{ID: "c1", Email: "ana@example.com"})
			repo.consumeErr = tt.repoErr
			svc := NewService(repo, txn.Direct)

			_, err := svc.ApplyPromoCode(context.Background(), tt.email, tt.code)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.Contains(t, err.Error(), "consume promo code")
		})
	}
}

package stock

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

type recordingLedger struct {
	restored map[string]int
}

func (l *recordingLedger) Reserve(context.Context, string, int) error { return nil }

func (l *recordingLedger) Restore(_ context.Context, id string, qty int) error {
	if l.restored == nil {
		l.restored = make(map[string]int)
	}
	l.restored[id] += qty
	return nil
}

func TestRestock(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		qty       int
		wantField string
	}{
		{name: "valid", productID: "p1", qty: 3},
		{name: "missing product", productID: "", qty: 3, wantField: "product_id"},
		{name: "zero quantity", productID: "p1", qty: 0, wantField: "quantity"},
		{name: "negative quantity", productID: "p1", qty: -2, wantField: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &recordingLedger{}
			err := Restock(context.Background(), l, tt.productID, tt.qty)

			if tt.wantField != "" {
				var verr *fault.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				assert.ErrorIs(t, err, fault.ErrValidation)
				assert.Empty(t, l.restored)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.qty, l.restored[tt.productID])
		})
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := error(&InsufficientStockError{ProductID: "p1", Available: 2, Requested: 3, Reason: ReasonShort})

	assert.True(t, errors.Is(err, fault.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "available 2, requested 3")

	inactive := &InsufficientStockError{ProductID: "p2", Reason: ReasonInactive}
	assert.Contains(t, inactive.Error(), "inactive")
}

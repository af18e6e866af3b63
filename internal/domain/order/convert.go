package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/pricing"
	"github.com/xenking/bakery-engine/internal/domain/sale"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

// DefaultCustomerName is the sale display name when the order's customer has
// none.
const DefaultCustomerName = "Customer"

// SaleCreator commits a sale.
type SaleCreator interface {
	Create(ctx context.Context, req sale.CreateRequest) (*sale.Sale, error)
}

// Converter finalizes an order into a sale exactly once.
type Converter struct {
	orders    Repository
	sales     SaleCreator
	uow       txn.UnitOfWork
	now       func() time.Time
	tracer    trace.Tracer
	converted metric.Int64Counter
}

// NewConverter creates a Converter.
func NewConverter(orders Repository, sales SaleCreator, uow txn.UnitOfWork, opts ...Option) (*Converter, error) {
	o := newOptions(opts)
	if uow == nil {
		uow = txn.Direct
	}
	converted, err := o.meterProvider.Meter("bakery/order").Int64Counter("bakery.orders.converted",
		metric.WithDescription("Orders converted to sales"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders converted counter")
	}
	return &Converter{
		orders:    orders,
		sales:     sales,
		uow:       uow,
		now:       func() time.Time { return o.now().UTC() },
		tracer:    o.tracerProvider.Tracer("bakery/order"),
		converted: converted,
	}, nil
}

// Convert creates a sale from the order's customer and items, then marks the
// order DELIVERED and links it to the sale. Stock is reserved again by the
// sale. If the sale fails, the order is left unchanged.
func (c *Converter) Convert(ctx context.Context, orderID, paymentMethod string) (_ *sale.Sale, rerr error) {
	ctx, span := c.tracer.Start(ctx, "order.Convert", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { finish(span, rerr) }()

	var created *sale.Sale
	err := c.uow.RunInTx(ctx, func(ctx context.Context) error {
		o, err := c.orders.GetByID(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "get order")
		}
		if o.State.IsTerminal() || o.SaleID != "" {
			return &TransitionError{OrderID: o.ID, From: o.State, To: StateDelivered}
		}

		notes := "Sale generated from order: " + o.Number
		if o.Notes != "" {
			notes = sale.AppendNote(notes, o.Notes)
		}
		s, err := c.sales.Create(ctx, sale.CreateRequest{
			CustomerID:    o.CustomerID,
			CustomerEmail: o.CustomerEmail,
			CustomerName:  DefaultCustomerName,
			PaymentMethod: paymentMethod,
			Notes:         notes,
			Items:         pricing.Requests(o.Items),
		})
		if err != nil {
			return errors.Wrap(err, "create sale")
		}

		from := o.State
		applyState(o, StateDelivered, c.now())
		o.SaleID = s.ID
		if err := c.orders.Update(ctx, o, from); err != nil {
			if errors.Is(err, ErrStateConflict) {
				return &TransitionError{OrderID: o.ID, From: from, To: StateDelivered}
			}
			return errors.Wrap(err, "update order")
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.converted.Add(ctx, 1)
	zctx.From(ctx).Info("Order converted",
		zap.String("order_id", orderID),
		zap.String("sale_id", created.ID),
		zap.String("sale_number", created.Number),
	)
	return created, nil
}

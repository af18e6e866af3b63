package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/discount"
	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

const (
	numberPrefix   = "PAN-"
	trackingPrefix = "TRK-"
)

// ShippingRates is the flat shipping cost per delivery type. Missing types
// ship for free.
type ShippingRates map[DeliveryType]decimal.Decimal

// Option configures a Service or a Converter.
type Option func(*options)

type options struct {
	now            func() time.Time
	shipping       ShippingRates
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func newOptions(opts []Option) options {
	o := options{
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShippingRates sets the shipping cost per delivery type.
func WithShippingRates(r ShippingRates) Option {
	return func(o *options) { o.shipping = r }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	CustomerEmail     string
	DeliveryType      string
	DeliveryAddress   string
	RequestedDelivery *time.Time
	Notes             string
	Items             []pricing.Request
}

// SetStateResult is the outcome of Service.SetState. Warning holds an
// *UnknownStateError when the label was not recognized and the order fell
// back to StateReceived.
type SetStateResult struct {
	Order   *Order
	Warning error
}

// Service owns the order lifecycle.
type Service struct {
	orders    Repository
	customers customer.Repository
	pricer    *pricing.Pricer
	discounts *discount.Calculator
	uow       txn.UnitOfWork
	shipping  ShippingRates
	now       func() time.Time
	tracer    trace.Tracer
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	customers customer.Repository,
	pricer *pricing.Pricer,
	discounts *discount.Calculator,
	uow txn.UnitOfWork,
	opts ...Option,
) *Service {
	o := newOptions(opts)
	if uow == nil {
		uow = txn.Direct
	}
	return &Service{
		orders:    orders,
		customers: customers,
		pricer:    pricer,
		discounts: discounts,
		uow:       uow,
		shipping:  o.shipping,
		now:       func() time.Time { return o.now().UTC() },
		tracer:    o.tracerProvider.Tracer("bakery/order"),
	}
}

// Create prices the requested items and stores a RECEIVED order. Stock is
// not reserved; availability is checked again on conversion.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))),
	)
	defer func() { finish(span, rerr) }()

	deliveryType, err := ParseDeliveryType(req.DeliveryType)
	if err != nil {
		return nil, err
	}
	if deliveryType.RequiresShipping() && req.DeliveryAddress == "" {
		return nil, fault.Validation("delivery_address", "required for "+string(deliveryType))
	}

	var created *Order
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		var profile *customer.Profile
		if req.CustomerEmail != "" {
			p, err := s.customers.GetByEmail(ctx, req.CustomerEmail)
			switch {
			case errors.Is(err, customer.ErrNotFound):
			case err != nil:
				return errors.Wrap(err, "get customer")
			default:
				profile = p
			}
		}

		lines, err := s.pricer.PriceAll(ctx, req.Items)
		if err != nil {
			return err
		}

		now := s.now()
		o := &Order{
			ID:                  uuid.New().String(),
			Number:              numberPrefix + ulid.Make().String(),
			CustomerEmail:       req.CustomerEmail,
			CreatedAt:           now,
			UpdatedAt:           now,
			RequestedDelivery:   req.RequestedDelivery,
			DeliveryType:        deliveryType,
			DeliveryAddress:     req.DeliveryAddress,
			Items:               lines,
			Discount:            decimal.Zero,
			ShippingCost:        s.shippingFor(deliveryType),
			State:               StateReceived,
			Notes:               req.Notes,
			NotificationPending: true,
		}
		if profile != nil {
			o.CustomerID = profile.ID
			o.CustomerEmail = profile.Email
			o.Discount = s.discounts.Compute(profile, lines).Amount
		}
		o.Subtotal = pricing.Subtotal(lines)
		o.Total = o.Subtotal.Sub(o.Discount).Add(o.ShippingCost)

		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_id", created.ID),
		zap.String("number", created.Number),
		zap.Stringer("total", created.Total),
	)
	return created, nil
}

// Advance moves the order exactly one step forward.
func (s *Service) Advance(ctx context.Context, id string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Advance", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { finish(span, rerr) }()

	return s.transition(ctx, id, func(o *Order) (State, error) {
		next, ok := o.State.Next()
		if !ok {
			return "", &TransitionError{OrderID: o.ID, From: o.State}
		}
		return next, nil
	})
}

// Cancel cancels an order that has not entered preparation.
func (s *Service) Cancel(ctx context.Context, id string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { finish(span, rerr) }()

	return s.transition(ctx, id, func(o *Order) (State, error) {
		if !o.State.Cancellable() {
			return "", &TransitionError{OrderID: o.ID, From: o.State, To: StateCancelled}
		}
		return StateCancelled, nil
	})
}

// SetState moves the order to the state named by an external label.
// Terminal orders cannot change and CANCELLED keeps its eligibility rule.
func (s *Service) SetState(ctx context.Context, id, label string) (_ *SetStateResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.SetState", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.state_label", label),
	))
	defer func() { finish(span, rerr) }()

	target, warning := ParseState(label)
	if warning != nil {
		zctx.From(ctx).Warn("Unknown order state label, using default",
			zap.String("order_id", id),
			zap.String("label", label),
			zap.String("state", string(target)),
		)
	}

	o, err := s.transition(ctx, id, func(o *Order) (State, error) {
		if o.State.IsTerminal() || (target == StateCancelled && !o.State.Cancellable()) {
			return "", &TransitionError{OrderID: o.ID, From: o.State, To: target}
		}
		return target, nil
	})
	if err != nil {
		return nil, err
	}
	return &SetStateResult{Order: o, Warning: warning}, nil
}

// Get returns an order snapshot.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// GetByNumber returns an order snapshot by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "get order by number")
	}
	return o, nil
}

// transition loads the order, asks decide for the target state and stores
// the change with a conditional update. Moving to the current state is a
// no-op.
func (s *Service) transition(ctx context.Context, id string, decide func(*Order) (State, error)) (*Order, error) {
	var updated *Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return errors.Wrap(err, "get order")
		}
		target, err := decide(o)
		if err != nil {
			return err
		}
		if target == o.State {
			updated = o
			return nil
		}

		from := o.State
		applyState(o, target, s.now())
		if err := s.orders.Update(ctx, o, from); err != nil {
			if errors.Is(err, ErrStateConflict) {
				return &TransitionError{OrderID: o.ID, From: from, To: target}
			}
			return errors.Wrap(err, "update order")
		}
		zctx.From(ctx).Info("Order state changed",
			zap.String("order_id", o.ID),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) shippingFor(t DeliveryType) decimal.Decimal {
	if r, ok := s.shipping[t]; ok {
		return r
	}
	return decimal.Zero
}

// applyState sets the state and its side effects: delivery stamp, tracking
// code for shipped orders and the pending notification.
func applyState(o *Order, target State, now time.Time) {
	o.State = target
	o.UpdatedAt = now
	o.NotificationPending = true
	switch target {
	case StateDelivered:
		o.DeliveredAt = &now
	case StateInTransit:
		if o.DeliveryType.RequiresShipping() && o.TrackingCode == "" {
			o.TrackingCode = trackingPrefix + ulid.Make().String()
		}
	}
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

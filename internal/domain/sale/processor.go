package sale

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
	"github.com/xenking/bakery-engine/internal/domain/stock"
	"github.com/xenking/bakery-engine/internal/domain/txn"
)

const numberPrefix = "V-"

// CreateRequest is the input of Processor.Create.
type CreateRequest struct {
	// CustomerID references a known customer. It takes precedence over
	// CustomerEmail and must exist.
	CustomerID string
	// CustomerEmail is looked up when CustomerID is empty. An unknown email
	// makes an anonymous sale that keeps the email.
	CustomerEmail string
	// CustomerName is used when the customer has no display name.
	CustomerName  string
	PaymentMethod string
	Notes         string
	Items         []pricing.Request
}

// Option configures a Processor.
type Option func(*options)

type options struct {
	now            func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Processor creates and cancels sales.
type Processor struct {
	sales     Repository
	customers customer.Repository
	pricer    *pricing.Pricer
	ledger    stock.Ledger
	discounts *discount.Calculator
	uow       txn.UnitOfWork
	now       func() time.Time

	tracer     trace.Tracer
	created    metric.Int64Counter
	cancelled  metric.Int64Counter
	shortfalls metric.Int64Counter
}

// NewProcessor creates a Processor.
func NewProcessor(
	sales Repository,
	customers customer.Repository,
	pricer *pricing.Pricer,
	ledger stock.Ledger,
	discounts *discount.Calculator,
	uow txn.UnitOfWork,
	opts ...Option,
) (*Processor, error) {
	o := options{
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if uow == nil {
		uow = txn.Direct
	}

	p := &Processor{
		sales:     sales,
		customers: customers,
		pricer:    pricer,
		ledger:    ledger,
		discounts: discounts,
		uow:       uow,
		now:       func() time.Time { return o.now().UTC() },
		tracer:    o.tracerProvider.Tracer("bakery/sale"),
	}

	meter := o.meterProvider.Meter("bakery/sale")
	var err error
	if p.created, err = meter.Int64Counter("bakery.sales.created",
		metric.WithDescription("Sales committed"),
	); err != nil {
		return nil, errors.Wrap(err, "sales created counter")
	}
	if p.cancelled, err = meter.Int64Counter("bakery.sales.cancelled",
		metric.WithDescription("Sales cancelled"),
	); err != nil {
		return nil, errors.Wrap(err, "sales cancelled counter")
	}
	if p.shortfalls, err = meter.Int64Counter("bakery.stock.shortfalls",
		metric.WithDescription("Sale attempts refused for insufficient stock"),
	); err != nil {
		return nil, errors.Wrap(err, "stock shortfalls counter")
	}
	return p, nil
}

// Create prices and reserves every requested item in order, then commits the
// sale. Either every reservation holds and the sale is stored, or none does.
func (p *Processor) Create(ctx context.Context, req CreateRequest) (_ *Sale, rerr error) {
	ctx, span := p.tracer.Start(ctx, "sale.Create",
		trace.WithAttributes(attribute.Int("sale.items", len(req.Items))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(req.Items) == 0 {
		return nil, fault.Validation("items", "required")
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var created *Sale
	err = p.uow.RunInTx(ctx, func(ctx context.Context) error {
		profile, err := p.resolveCustomer(ctx, req)
		if err != nil {
			return err
		}

		lines, err := p.reserveAll(ctx, req.Items)
		if err != nil {
			return err
		}

		s := p.build(req, profile, method, lines)
		if err := p.sales.Create(ctx, s); err != nil {
			p.release(ctx, lines)
			return errors.Wrap(err, "create sale")
		}
		created = s
		return nil
	})
	if err != nil {
		if errors.Is(err, fault.ErrInsufficientStock) {
			p.shortfalls.Add(ctx, 1)
		}
		return nil, err
	}

	p.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(created.PaymentMethod)),
	))
	span.SetAttributes(attribute.String("sale.number", created.Number))
	zctx.From(ctx).Info("Sale created",
		zap.String("sale_id", created.ID),
		zap.String("number", created.Number),
		zap.Stringer("total", created.Total),
		zap.Int("items", created.ItemsCount()),
	)
	return created, nil
}

// Cancel moves a completed sale to CANCELLED and returns its stock. Only the
// first cancel of a sale succeeds.
func (p *Processor) Cancel(ctx context.Context, id, reason string) (_ *Sale, rerr error) {
	ctx, span := p.tracer.Start(ctx, "sale.Cancel",
		trace.WithAttributes(attribute.String("sale.id", id)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	var cancelled *Sale
	err := p.uow.RunInTx(ctx, func(ctx context.Context) error {
		s, err := p.sales.GetByID(ctx, id)
		if err != nil {
			return errors.Wrap(err, "get sale")
		}
		if s.State != StateCompleted {
			return &TransitionError{SaleID: s.ID, From: s.State, To: StateCancelled}
		}

		note := "CANCELLED"
		if reason != "" {
			note += ": " + reason
		}
		s.State = StateCancelled
		s.Notes = AppendNote(s.Notes, note)
		s.UpdatedAt = p.now()

		if err := p.sales.UpdateState(ctx, s, StateCompleted); err != nil {
			if errors.Is(err, ErrStateConflict) {
				return &TransitionError{SaleID: s.ID, From: StateCancelled, To: StateCancelled}
			}
			return errors.Wrap(err, "update sale state")
		}
		for _, l := range s.Items {
			if err := p.ledger.Restore(ctx, l.ProductID, l.Quantity); err != nil {
				return errors.Wrapf(err, "restore stock for %s", l.ProductID)
			}
		}
		cancelled = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.cancelled.Add(ctx, 1)
	zctx.From(ctx).Info("Sale cancelled",
		zap.String("sale_id", cancelled.ID),
		zap.String("reason", reason),
	)
	return cancelled, nil
}

// Get returns a sale snapshot.
func (p *Processor) Get(ctx context.Context, id string) (*Sale, error) {
	s, err := p.sales.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get sale")
	}
	return s, nil
}

func (p *Processor) resolveCustomer(ctx context.Context, req CreateRequest) (*customer.Profile, error) {
	switch {
	case req.CustomerID != "":
		c, err := p.customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "get customer")
		}
		return c, nil
	case req.CustomerEmail != "":
		c, err := p.customers.GetByEmail(ctx, req.CustomerEmail)
		if errors.Is(err, customer.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "get customer")
		}
		return c, nil
	default:
		return nil, nil
	}
}

// reserveAll prices and reserves each request in order. On failure it
// restores everything reserved so far before returning.
func (p *Processor) reserveAll(ctx context.Context, reqs []pricing.Request) ([]pricing.LineItem, error) {
	lines := make([]pricing.LineItem, 0, len(reqs))
	for _, req := range reqs {
		line, err := p.pricer.Price(ctx, req)
		if err != nil {
			p.release(ctx, lines)
			return nil, err
		}
		if err := p.ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			p.release(ctx, lines)
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// release gives back reserved stock. Errors are logged: the enclosing
// transaction is already failing and its rollback covers durable stores.
func (p *Processor) release(ctx context.Context, lines []pricing.LineItem) {
	for _, l := range lines {
		if err := p.ledger.Restore(ctx, l.ProductID, l.Quantity); err != nil {
			zctx.From(ctx).Warn("Release reserved stock",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (p *Processor) build(req CreateRequest, profile *customer.Profile, method PaymentMethod, lines []pricing.LineItem) *Sale {
	now := p.now()
	s := &Sale{
		ID:            uuid.New().String(),
		Number:        numberPrefix + ulid.Make().String(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         lines,
		PaymentMethod: method,
		State:         StateCompleted,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res := discount.Result{Amount: decimal.Zero, FreeIndex: -1}
	if profile != nil {
		s.CustomerID = profile.ID
		s.CustomerEmail = profile.Email
		if name := profile.DisplayName(); name != "" {
			s.CustomerName = name
		}
		res = p.discounts.Compute(profile, lines)
	}

	s.Subtotal = pricing.Subtotal(lines)
	s.Discount = res.Amount
	s.Total = s.Subtotal.Sub(s.Discount)
	return s
}

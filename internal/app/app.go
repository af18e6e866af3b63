package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/discount"
	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/sale"
	"github.com/xenking/bakery-engine/internal/domain/stock"
	"github.com/xenking/bakery-engine/internal/domain/txn"
	"github.com/xenking/bakery-engine/internal/handler"
	"github.com/xenking/bakery-engine/internal/storage/memory"
	"github.com/xenking/bakery-engine/internal/storage/postgres"
	"github.com/xenking/bakery-engine/pkg/health"
	"github.com/xenking/bakery-engine/pkg/httpmiddleware"
)

const serviceName = "bakery-api"

type catalog interface {
	product.Repository
	stock.Ledger
}

// backend is one storage implementation behind the engine.
type backend struct {
	uow       txn.UnitOfWork
	pinger    health.Pinger
	products  catalog
	customers customer.Repository
	orders    order.Repository
	sales     sale.Repository
	close     func()
}

func openBackend(ctx context.Context, lg *zap.Logger, cfg *Config) (*backend, error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		s := memory.New()
		return &backend{
			uow:       s,
			pinger:    s,
			products:  s.Products(),
			customers: s.Customers(),
			orders:    s.Orders(),
			sales:     s.Sales(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	s := postgres.NewStore(pool)
	return &backend{
		uow:       s,
		pinger:    s,
		products:  s.Products(),
		customers: s.Customers(),
		orders:    s.Orders(),
		sales:     s.Sales(),
		close:     pool.Close,
	}, nil
}

// newHandler wires the engine services over b and returns the root HTTP
// handler.
func newHandler(ctx context.Context, b *backend, cfg *Config, m httpmiddleware.Telemetry, hs *health.Health) (http.Handler, error) {
	rates, err := cfg.Shipping.Rates()
	if err != nil {
		return nil, errors.Wrap(err, "shipping rates")
	}

	pricer := pricing.NewPricer(b.products)
	calc := discount.NewCalculator(nil)

	sales, err := sale.NewProcessor(b.sales, b.customers, pricer, b.products, calc, b.uow,
		sale.WithTracerProvider(m.TracerProvider()),
		sale.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create sale processor")
	}
	orderOpts := []order.Option{
		order.WithShippingRates(rates),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	}
	orders := order.NewService(b.orders, b.customers, pricer, calc, b.uow, orderOpts...)
	converter, err := order.NewConverter(b.orders, sales, b.uow, orderOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create order converter")
	}

	h := handler.NewHandler(b.products, b.products, orders, converter, sales, customer.NewService(b.customers, b.uow))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hs.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hs.ReadyEndpoint)
	h.Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
			IdleTTL: cfg.RateLimit.IdleTTL,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	), nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	b, err := openBackend(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck(cfg.Storage, 5*time.Second, health.PingCheck(b.pinger))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	root, err := newHandler(ctx, b, cfg, m, healthSvc)
	if err != nil {
		healthSvc.Stop()
		return err
	}
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           root,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bakery-engine/internal/catalog"
	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/storage/postgres"
)

type options struct {
	databaseURL   string
	productsFile  string
	customersFile string
	studentDomain string
	stock         int
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "products JSON file, optionally .gz (default: built-in catalog)")
	flag.StringVar(&opts.customersFile, "customers-file", "", "customers JSON file, optionally .gz")
	flag.StringVar(&opts.studentDomain, "student-domain", customer.DefaultStudentDomain, "email domain that marks students")
	flag.IntVar(&opts.stock, "stock", 0, "opening stock for the built-in catalog")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.stock < 0 {
		slog.Error("stock must not be negative")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	var (
		products  []product.Product
		customers []*customer.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.productsFile == "" {
			products = catalog.Defaults(opts.stock)
			return nil
		}
		ps, err := readFile(gctx, opts.productsFile, catalog.DecodeProducts)
		if err != nil {
			return errors.Wrap(err, "read products")
		}
		products = ps
		return nil
	})
	if opts.customersFile != "" {
		g.Go(func() error {
			cs, err := readFile(gctx, opts.customersFile, func(f io.Reader) ([]*customer.Profile, error) {
				return catalog.DecodeCustomers(f, opts.studentDomain)
			})
			if err != nil {
				return errors.Wrap(err, "read customers")
			}
			customers = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)

	slog.Info("upserting products", slog.Int("count", len(products)))
	if err := catalog.SeedProducts(ctx, store.Products(), products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if len(customers) > 0 {
		slog.Info("upserting customers", slog.Int("count", len(customers)))
		if err := catalog.SeedCustomers(ctx, store.Customers(), customers); err != nil {
			return errors.Wrap(err, "seed customers")
		}
	}

	return nil
}

func readFile[T any](ctx context.Context, path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	slog.Info("reading file", slog.String("path", path))

	f, err := catalog.Open(path)
	if err != nil {
		return zero, err
	}
	defer func() { _ = f.Close() }()

	return decode(f)
}

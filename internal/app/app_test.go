package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/pkg/health"
	"github.com/xenking/bakery-engine/pkg/httpmiddleware"
)

var _ httpmiddleware.Telemetry = noopTelemetry{}

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func testConfig() *Config {
	return &Config{
		Storage:   StorageMemory,
		Shipping:  ShippingConfig{Pickup: "0", Delivery: "3500", National: "5000"},
		RateLimit: RateLimitConfig{RPS: 1000, Burst: 1000, IdleTTL: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		err    string
	}{
		{name: "memory", mutate: func(*Config) {}},
		{name: "postgres with url", mutate: func(c *Config) {
			c.Storage = StoragePostgres
			c.DatabaseURL = "postgres://localhost/bakery"
		}},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage = StoragePostgres }, err: "database URL is required"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "redis" }, err: `unknown storage "redis"`},
		{name: "bad rate", mutate: func(c *Config) { c.Shipping.Delivery = "cheap" }, err: "shipping"},
		{name: "negative rate", mutate: func(c *Config) { c.Shipping.National = "-1" }, err: "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.err)
		})
	}
}

func TestShippingConfig_Rates(t *testing.T) {
	rates, err := ShippingConfig{Delivery: "3500.50", National: "5000"}.Rates()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("3500.50").Equal(rates[order.DeliveryHome]))
	assert.True(t, decimal.NewFromInt(5000).Equal(rates[order.DeliveryNationalShipping]))
	_, ok := rates[order.DeliveryPickup]
	assert.False(t, ok)
}

func TestNewHandler_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	b, err := openBackend(ctx, zap.NewNop(), cfg)
	require.NoError(t, err)
	defer b.close()

	p := product.Product{
		ID: "tart", Code: "PT001", Name: "Tarta", Price: decimal.NewFromInt(1000),
		Category: product.CategoryTraditional, Stock: 3, StockMinimum: 1, Active: true,
	}
	require.NoError(t, b.products.Save(ctx, &p))

	hs := health.New()
	hs.AddReadinessCheck(cfg.Storage, time.Second, health.PingCheck(b.pinger))
	root, err := newHandler(ctx, b, cfg, noopTelemetry{}, hs)
	require.NoError(t, err)

	srv := httptest.NewServer(root)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	hs.SetReady(true)
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/sales", "application/json",
		strings.NewReader(`{"items":[{"product_id":"tart","quantity":2}]}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(httpmiddleware.RequestIDHeader))

	left, err := b.products.GetByID(ctx, "tart")
	require.NoError(t, err)
	assert.Equal(t, 1, left.Stock)
}

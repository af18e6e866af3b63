package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/order"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BAKERY_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BAKERY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or memory"`
	Shipping    ShippingConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// ShippingConfig holds the flat shipping cost per delivery type. Values are
// decimal strings.
type ShippingConfig struct {
	Pickup   string `default:"0" usage:"Shipping cost for store pickup"`
	Delivery string `default:"3500" usage:"Shipping cost for local delivery"`
	National string `default:"5000" usage:"Shipping cost for national shipping"`
}

// Rates parses the configured costs.
func (c ShippingConfig) Rates() (order.ShippingRates, error) {
	rates := order.ShippingRates{}
	for t, v := range map[order.DeliveryType]string{
		order.DeliveryPickup:           c.Pickup,
		order.DeliveryHome:             c.Delivery,
		order.DeliveryNationalShipping: c.National,
	} {
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.Wrapf(err, "shipping cost for %s", t)
		}
		if d.IsNegative() {
			return nil, errors.Errorf("shipping cost for %s is negative", t)
		}
		rates[t] = d
	}
	return rates, nil
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS     float64       `default:"20" usage:"Sustained requests per second per client"`
	Burst   int           `default:"40" usage:"Burst size per client"`
	IdleTTL time.Duration `default:"10m" usage:"Forget clients idle this long" flag:"rate-limit-idle-ttl"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BAKERY",
		Files:     []string{"config.yaml", "/etc/bakery/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set BAKERY_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if _, err := c.Shipping.Rates(); err != nil {
		return errors.Wrap(err, "shipping")
	}
	return nil
}

// applyPlatformDefaults maps the platform-provided DATABASE_URL and PORT
// variables onto the BAKERY_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/streetmagic-pos/internal/storage"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete server configuration, loadable from environment
// variables (POS_ prefix), flags or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Register  RegisterConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where terminal state and the order log live.
type StorageConfig struct {
	Driver      string `default:"file" usage:"Storage driver: file or postgres"`
	Path        string `default:"pos-state.json" usage:"State file for the file driver"`
	DatabaseURL string `usage:"PostgreSQL connection URL (POS_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// RegisterConfig describes the restaurant floor and receipt numbering.
type RegisterConfig struct {
	Tables       int    `default:"8" usage:"Number of dine-in tables"`
	BillBaseline int    `default:"3940" usage:"Sequence value before the first bill or KOT" flag:"bill-baseline"`
	TimeZone     string `default:"UTC" usage:"IANA time zone for receipts and daily reports" flag:"time-zone"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, ac)
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the DATABASE_URL and PORT variables set by
// hosting platforms onto the POS_ configuration. A DATABASE_URL alone
// switches storage to postgres.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
			if os.Getenv("POS_STORAGE_DRIVER") == "" {
				c.Storage.Driver = storage.DriverPostgres
			}
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports configuration that cannot start a server.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverFile:
	case storage.DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required for postgres storage: set POS_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Register.Tables < 1 {
		return errors.Errorf("register needs at least one table, got %d", c.Register.Tables)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Register.TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.Register.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Register.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "load time zone %q", c.Register.TimeZone)
	}
	return loc, nil
}

package rekord

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rekord-dev/rekord/dialect"
	"github.com/rekord-dev/rekord/dialect/mysql"
	"github.com/rekord-dev/rekord/dialect/sqlite"
)

// Config selects and parameterizes the backing store.
type Config struct {
	// Driver is "mysql" or "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string (a file path for
	// sqlite). When empty the adapter falls back to its own environment
	// variables.
	DSN string `yaml:"dsn"`
}

// Open returns a Catalog over the selected backing store.
func Open(cfg Config) (*Catalog, error) {
	drv, err := openDriver(cfg)
	if err != nil {
		return nil, err
	}
	return New(drv), nil
}

// OpenFromEnv selects the backing store from REKORD_DRIVER (default
// "sqlite") and REKORD_DSN, deferring to the adapters' own environment
// variables when no DSN is given.
func OpenFromEnv() (*Catalog, error) {
	driver := os.Getenv("REKORD_DRIVER")
	if driver == "" {
		driver = dialect.SQLite
	}
	return Open(Config{Driver: driver, DSN: os.Getenv("REKORD_DSN")})
}

// OpenFromFile reads a YAML config file and opens the catalog it selects.
func OpenFromFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rekord: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("rekord: parse config: %w", err)
	}
	return Open(cfg)
}

func openDriver(cfg Config) (dialect.Driver, error) {
	switch cfg.Driver {
	case dialect.MySQL:
		if cfg.DSN == "" {
			return mysql.OpenFromEnv()
		}
		return mysql.Open(cfg.DSN)
	case dialect.SQLite:
		if cfg.DSN == "" {
			return sqlite.OpenFromEnv()
		}
		return sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("rekord: unknown driver %q", cfg.Driver)
	}
}

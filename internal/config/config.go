package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Logger   LoggerConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	DSN             string // overrides every other field when set
	Path            string // sqlite file
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the optional ledger event journal settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Key      string
	MaxLen   int64
}

// LedgerConfig controls how storage operations are bounded and retried
type LedgerConfig struct {
	MaxRetries     int
	OpTimeout      time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// MetricsConfig holds the prometheus namespace
type MetricsConfig struct {
	Namespace string
}

// SetDefaults registers every key with its default so env overrides are
// picked up by AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "atm.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "atm")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "atm:ledger_events")
	v.SetDefault("redis.max_len", 10000)

	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.op_timeout", 2*time.Second)
	v.SetDefault("ledger.initial_backoff", 20*time.Millisecond)
	v.SetDefault("ledger.max_backoff", 500*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.namespace", "atm")
}

// Load reads configuration from an optional file and ATM_* environment
// variables, falling back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("ATM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			DSN:             v.GetString("database.dsn"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Key:      v.GetString("redis.key"),
			MaxLen:   v.GetInt64("redis.max_len"),
		},
		Ledger: LedgerConfig{
			MaxRetries:     v.GetInt("ledger.max_retries"),
			OpTimeout:      v.GetDuration("ledger.op_timeout"),
			InitialBackoff: v.GetDuration("ledger.initial_backoff"),
			MaxBackoff:     v.GetDuration("ledger.max_backoff"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("metrics.namespace"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the ledger cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return errors.New("postgres requires a dsn or a host and database name")
		}
	case "sqlite":
		if c.Database.DSN == "" && c.Database.Path == "" {
			return errors.New("sqlite requires a dsn or a path")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q (must be postgres or sqlite)", c.Database.Driver)
	}

	if c.Ledger.MaxRetries < 1 || c.Ledger.MaxRetries > 10 {
		return fmt.Errorf("ledger max retries must be between 1 and 10, got %d", c.Ledger.MaxRetries)
	}
	if c.Ledger.OpTimeout <= 0 {
		return errors.New("ledger operation timeout must be positive")
	}
	if c.Ledger.InitialBackoff <= 0 || c.Ledger.MaxBackoff < c.Ledger.InitialBackoff {
		return fmt.Errorf("ledger backoff must satisfy 0 < initial (%s) <= max (%s)",
			c.Ledger.InitialBackoff, c.Ledger.MaxBackoff)
	}

	if c.Redis.Enabled && c.Redis.MaxLen <= 0 {
		return errors.New("redis max_len must be positive when the journal is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// DataSource returns the driver specific connection string
func (c *DatabaseConfig) DataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the redis host:port pair
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

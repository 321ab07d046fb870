package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/spf13/viper"
)

/* Config is read from an optional .env file (TOML) in the working directory,
 * overridden by environment variables of the same name.
 */

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
	LimiterNone   = "none"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	BaseURL           string        `mapstructure:"BASE_URL"`
	DestinationPrefix string        `mapstructure:"DESTINATION_PREFIX"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes      int64         `mapstructure:"MAX_BODY_BYTES"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	PostgresHost               string `mapstructure:"POSTGRES_HOST"`
	PostgresPort               string `mapstructure:"POSTGRES_PORT"`
	PostgresUser               string `mapstructure:"POSTGRES_USER"`
	PostgresPassword           string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB                 string `mapstructure:"POSTGRES_DB"`
	PostgresSSLMode            string `mapstructure:"POSTGRES_SSLMODE"`
	PostgresMaxOpenConns       int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresMaxIdleConns       int    `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	PostgresConnMaxLifeMinutes int    `mapstructure:"POSTGRES_CONN_MAX_LIFE_MINUTES"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RateLimitStore     string `mapstructure:"RATE_LIMIT_STORE"`
	RateLimitDefault   string `mapstructure:"RATE_LIMIT_DEFAULT"`
	RateLimitRegister  string `mapstructure:"RATE_LIMIT_REGISTER"`
	RateLimitDuplicate string `mapstructure:"RATE_LIMIT_DUPLICATE"`
	TrustedProxyHeader string `mapstructure:"TRUSTED_PROXY_HEADER"`
	TrustForwardedFor  bool   `mapstructure:"TRUST_FORWARDED_FOR"`

	ForwardTimeout   time.Duration `mapstructure:"FORWARD_TIMEOUT"`
	ForwardWorkers   int           `mapstructure:"FORWARD_WORKERS"`
	ForwardQueueSize int           `mapstructure:"FORWARD_QUEUE_SIZE"`
}

// Limits are the parsed rate-limit rules
type Limits struct {
	Default   ratelimit.Rule
	Register  ratelimit.Rule
	Duplicate ratelimit.Rule
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("DESTINATION_PREFIX", "https://discord.com/api/webhooks/")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)

	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("SQLITE_PATH", "webhooks.db")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "webhooks")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 25)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)
	v.SetDefault("POSTGRES_CONN_MAX_LIFE_MINUTES", 5)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RATE_LIMIT_STORE", LimiterMemory)
	v.SetDefault("RATE_LIMIT_DEFAULT", "100/minute")
	v.SetDefault("RATE_LIMIT_REGISTER", "3/minute")
	v.SetDefault("RATE_LIMIT_DUPLICATE", "1/15second")
	v.SetDefault("TRUSTED_PROXY_HEADER", ratelimit.DefaultTrustedHeader)
	v.SetDefault("TRUST_FORWARDED_FOR", true)

	v.SetDefault("FORWARD_TIMEOUT", 5*time.Second)
	v.SetDefault("FORWARD_WORKERS", 4)
	v.SetDefault("FORWARD_QUEUE_SIZE", 1024)
}

// GetConfig reads .env from the working directory
func GetConfig() (*Config, error) {
	return GetConfigFrom(".")
}

// GetConfigFrom reads .env from dir. A missing file is not an error.
func GetConfigFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	// TRUSTED_PROXY_HEADER="" must switch the header off
	v.AllowEmptyEnv(true)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("validating config: PORT is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("validating config: BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	switch c.StoreDriver {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("validating config: SQLITE_PATH is required")
		}
	case StorePostgres:
		if err := c.ValidatePostgres(); err != nil {
			return err
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("validating config: REDIS_ADDR is required")
		}
	default:
		return fmt.Errorf("validating config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.RateLimitStore {
	case LimiterMemory, LimiterRedis, LimiterNone:
	default:
		return fmt.Errorf("validating config: unknown RATE_LIMIT_STORE %q", c.RateLimitStore)
	}
	if _, err := c.Limits(); err != nil {
		return err
	}
	if c.ForwardWorkers <= 0 || c.ForwardQueueSize <= 0 {
		return fmt.Errorf("validating config: FORWARD_WORKERS and FORWARD_QUEUE_SIZE must be positive")
	}
	if c.ForwardTimeout <= 0 {
		return fmt.Errorf("validating config: FORWARD_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("validating config: MAX_BODY_BYTES must be positive")
	}
	return nil
}

func (c *Config) Limits() (Limits, error) {
	var l Limits
	var err error
	if l.Default, err = ratelimit.ParseRule(c.RateLimitDefault); err != nil {
		return Limits{}, fmt.Errorf("validating config: RATE_LIMIT_DEFAULT: %w", err)
	}
	if l.Register, err = ratelimit.ParseRule(c.RateLimitRegister); err != nil {
		return Limits{}, fmt.Errorf("validating config: RATE_LIMIT_REGISTER: %w", err)
	}
	if l.Duplicate, err = ratelimit.ParseRule(c.RateLimitDuplicate); err != nil {
		return Limits{}, fmt.Errorf("validating config: RATE_LIMIT_DUPLICATE: %w", err)
	}
	return l, nil
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.StoreDriver == StoreRedis || c.RateLimitStore == LimiterRedis
}

func (c *Config) ValidatePostgres() error {
	var missing []string
	if c.PostgresHost == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if c.PostgresUser == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if c.PostgresDB == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if len(missing) > 0 {
		return fmt.Errorf("validating config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// PostgresConnectionString builds a URL usable by both lib/pq and golang-migrate
func (c *Config) PostgresConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

func (c *Config) GetPostgresMaxOpenConns() int {
	return c.PostgresMaxOpenConns
}

func (c *Config) GetPostgresMaxIdleConns() int {
	return c.PostgresMaxIdleConns
}

func (c *Config) GetPostgresConnMaxLifeMinutes() int {
	return c.PostgresConnMaxLifeMinutes
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type AppConfig struct {
	Name            string        `envconfig:"APP_NAME" default:"shop-service"`
	Port            string        `envconfig:"APP_PORT" default:"8080"`
	Env             string        `envconfig:"APP_ENV" default:"development"`
	Debug           bool          `envconfig:"APP_DEBUG" default:"false"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type PostgresConfig struct {
	Host            string        `envconfig:"DB_HOST" required:"true"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" required:"true"`
	Password        string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName          string        `envconfig:"DB_NAME" required:"true"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	Schema          string        `envconfig:"DB_SCHEMA" default:"shop_service"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	RunMigrations   bool          `envconfig:"DB_RUN_MIGRATIONS" default:"true"`
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"shop-service"`
}

type RabbitMQConfig struct {
	URL      string `envconfig:"RABBITMQ_URL"`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"shop.orders"`
}

type CatalogConfig struct {
	DefaultPageSize int `envconfig:"CATALOG_DEFAULT_PAGE_SIZE" default:"15"`
	MaxPageSize     int `envconfig:"CATALOG_MAX_PAGE_SIZE" default:"100"`
	RelatedLimit    int `envconfig:"CATALOG_RELATED_LIMIT" default:"4"`
	TrendingDays    int `envconfig:"CATALOG_TRENDING_DAYS" default:"30"`
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	RabbitMQ RabbitMQConfig
	Catalog  CatalogConfig
}

// NewConfig reads an optional .env file and then the process environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}

	if cfg.Catalog.DefaultPageSize <= 0 || cfg.Catalog.MaxPageSize < cfg.Catalog.DefaultPageSize {
		return nil, fmt.Errorf("invalid page size settings: default=%d max=%d",
			cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize)
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

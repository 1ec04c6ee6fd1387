package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Postgres struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.Schema)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connstr: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Схема должна существовать до запуска миграций
	_, err = dbPool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{cfg.Schema}.Sanitize())
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create schema %s: %w", cfg.Schema, err)
	}

	if cfg.RunMigrations {
		if err := Migrate(migrationDSN(cfg)); err != nil {
			dbPool.Close()
			return nil, err
		}
	}

	log.Info().Str("schema", cfg.Schema).Msg("Connected to PostgreSQL")
	return &Postgres{Pool: dbPool}, nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("Database connection closed")
	}
}

func migrationDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	q.Set("search_path", cfg.Schema)
	u.RawQuery = q.Encode()
	return u.String()
}

// Migrate applies every pending embedded migration to the database at databaseURL.
// postgres:// and postgresql:// URLs are accepted and routed to the pgx driver.
func Migrate(databaseURL string) error {
	databaseURL = toMigrateURL(databaseURL)

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migration instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source_err", srcErr).AnErr("db_err", dbErr).Msg("Failed to close migrator")
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info().Msg("New migrations applied successfully")

	return nil
}

func toMigrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

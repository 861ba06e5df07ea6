package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vancomm/minesweeper-autoplayer/internal/config"
)

// Migrations holds the run store schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

func ConnectURL(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, config)
}

func Migrate(url string, migrations fs.FS) (migrator *migrate.Migrate, err error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("unable to create migrations iofs: %w", err)
	}
	migrator, err = migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return migrator, nil
}

// ConnectAndMigrate brings the schema at url up to date and opens a pool on it.
func ConnectAndMigrate(ctx context.Context, url string, migrations fs.FS) (*pgxpool.Pool, *migrate.Migrate, error) {
	migrator, err := Migrate(url, migrations)
	if err != nil {
		return nil, nil, err
	}
	conn, err := ConnectURL(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return conn, migrator, nil
}

// ConnectAndMigrateEnv is ConnectAndMigrate with the url taken from the
// environment.
func ConnectAndMigrateEnv(ctx context.Context) (*pgxpool.Pool, *migrate.Migrate, error) {
	url, err := config.DbURL()
	if err != nil {
		return nil, nil, err
	}
	return ConnectAndMigrate(ctx, url, Migrations)
}

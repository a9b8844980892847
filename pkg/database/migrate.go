package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/richxcame/agroverify/pkg/config"
)

// RunMigrations applies all pending schema migrations from cfg.MigrationsDir.
// A database already at the latest version is not an error.
func RunMigrations(cfg *config.DatabaseConfig) error {
	sourceURL := "file://" + cfg.MigrationsDir
	databaseURL := strings.Replace(cfg.MigrateURL(), "postgres://", "pgx5://", 1)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("unable to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	return nil
}

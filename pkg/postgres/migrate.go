package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all pending migrations from migrationsPath (a
// migrate source URL such as "file://migrations") to the database at dsn.
// An already up-to-date schema is not an error.
func RunMigrations(migrationsPath string, dsn string) error {
	const op = "postgres.RunMigrations"

	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to set up migrations: %w", op, err)
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: failed to apply migrations: %w", op, err)
	}

	return nil
}

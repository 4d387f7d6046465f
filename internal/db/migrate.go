// Package db runs the ordered, reversible schema migrations for the
// storage layer. Each step has an up and a down script; the runner records
// the last-applied version and halts at the first failing step.
package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newRunner builds a migrate instance from the embedded SQL steps
func newRunner(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migration runner: %w", err)
	}
	return m, nil
}

// failedStep extracts the step the runner stopped at. After a failure the
// schema_migrations row is left dirty at that version.
func failedStep(m *migrate.Migrate) uint {
	version, _, err := m.Version()
	if err != nil {
		return 0
	}
	return version
}

// Migrate applies all pending steps up to the latest version. Applying when
// already at the latest version is a no-op.
func Migrate(databaseURL string, log *zap.Logger) error {
	m, err := newRunner(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("Applying schema migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Schema is up to date")
			return nil
		}
		return apperr.NewMigrationError(failedStep(m), err)
	}

	version, _, _ := m.Version()
	log.Info("Schema migrations applied", zap.Uint("version", version))
	return nil
}

// MigrateTo applies or reverts steps until the schema sits at the given
// version. Targeting the current version is a no-op.
func MigrateTo(databaseURL string, version uint, log *zap.Logger) error {
	m, err := newRunner(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("Migrating schema", zap.Uint("target_version", version))
	if err := m.Migrate(version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return apperr.NewMigrationError(failedStep(m), err)
	}
	return nil
}

// Rollback reverts every step, leaving the schema free of all tables,
// triggers and policies introduced by this subsystem.
func Rollback(databaseURL string, log *zap.Logger) error {
	m, err := newRunner(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("Reverting all schema migrations")
	if err := m.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return apperr.NewMigrationError(failedStep(m), err)
	}
	return nil
}

// Version returns the last-applied step and whether the schema is dirty
// (a step failed mid-application)
func Version(databaseURL string) (uint, bool, error) {
	m, err := newRunner(databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

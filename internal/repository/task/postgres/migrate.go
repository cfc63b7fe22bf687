package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"taskManager/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies pending migrations. Cancelling ctx stops migrate after the
// migration it is currently running.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	defer stopOnCancel(ctx, m)()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: migrations failed", err)
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("Repository: no migrations applied")
	case err != nil:
		logger.Warn("Repository: failed to read migration version", zap.Error(err))
	default:
		logger.Info("Repository: migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rollback migrations: %w", err)
	}

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	defer stopOnCancel(ctx, m)()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: rollback failed", err)
		return fmt.Errorf("rollback migrations: %w", err)
	}

	logger.Info("Repository: migrations rolled back")
	return nil
}

// stopOnCancel forwards ctx cancellation to m.GracefulStop until the returned
// func is called.
func stopOnCancel(ctx context.Context, m *migrate.Migrate) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (s *Storage) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.connString))
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// migrateURL rewrites a postgres:// URL to the scheme the pgx/v5 migrate driver registers.
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

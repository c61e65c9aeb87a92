// Package store opens the message log backend selected by LOG_BACKEND.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/db"
	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
	"github.com/Muzaffarxon04/tg-message-archiver/sheets"
)

// Store is an opened backend.
type Store struct {
	msglog.Table
	closeFn func() error
}

// Ping reports whether the backend is reachable. Postgres pings the pool;
// other backends read the header row.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.Table.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.ReadRange(ctx, msglog.HeaderRange)
	return err
}

// Close releases backend resources.
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Open connects the configured backend. It does not create the tab; call
// EnsureTab before writing.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		t, err := sheets.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Store{Table: t}, nil

	case config.BackendPostgres:
		database, err := db.Connect(cfg.DBDsn)
		if err != nil {
			return nil, err
		}
		if err := migrateDB(ctx, database); err != nil {
			_ = database.Close()
			return nil, err
		}
		return &Store{Table: db.NewTable(database, cfg.TabName), closeFn: database.Close}, nil

	case config.BackendMemory:
		slog.Warn("memory backend selected; the message log is lost on exit", slog.String("component", "store"))
		return &Store{Table: msglog.NewMemTable()}, nil
	}
	return nil, fmt.Errorf("unknown LOG_BACKEND %q", cfg.Backend)
}

// migrateDB prefers versioned migrations and falls back to the embedded
// schema when the migrations directory is unavailable.
func migrateDB(ctx context.Context, database *sql.DB) error {
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			return fmt.Errorf("migrate db (both versioned and embedded SQL failed): %w", err)
		}
		slog.Info("embedded SQL migration completed", slog.String("component", "db_migrate"))
		return nil
	}
	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at migration %d - manual intervention required", version)
	}
	slog.Info("versioned migrations completed successfully", slog.Uint64("version", uint64(version)), slog.String("component", "db_migrate"))
	return nil
}

package kvstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/internal/database"
)

// Open creates the store selected by cfg.Driver.
// The returned close function releases the underlying resources and is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.StorageDriverMemory:
		return NewMemoryStore(), noop, nil
	case config.StorageDriverFile:
		return NewFileStore(cfg.File.Directory), noop, nil
	case config.StorageDriverSQLite, config.StorageDriverMySQL:
	default:
		return nil, noop, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}

	open := func() (*sqlx.DB, error) { return database.OpenSQLite(cfg.SQLite) }
	if cfg.Driver == config.StorageDriverMySQL {
		open = func() (*sqlx.DB, error) { return database.OpenMySQL(cfg.MySQL) }
	}
	db, err := open()
	if err != nil {
		return nil, noop, fmt.Errorf("open %s > %w", cfg.Driver, err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, noop, fmt.Errorf("database.Migrate > %w", err)
	}
	store, err := NewSQLStore(db)
	if err != nil {
		_ = db.Close()
		return nil, noop, fmt.Errorf("NewSQLStore > %w", err)
	}
	return store, db.Close, nil
}

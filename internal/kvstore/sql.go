package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var upsertStatements = map[string]string{
	"mysql": `INSERT INTO kv_entries (entry_key, entry_value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value)`,
	"sqlite3": `INSERT INTO kv_entries (entry_key, entry_value) VALUES (?, ?)
		ON CONFLICT(entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = CURRENT_TIMESTAMP`,
}

// SQLStore keeps values in the kv_entries table of a MySQL or SQLite database.
type SQLStore struct {
	db     *sqlx.DB
	upsert string
}

// NewSQLStore creates a SQLStore. The kv_entries table must already exist, see database.Migrate.
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	upsert, ok := upsertStatements[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}
	return &SQLStore{db: db, upsert: upsert}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT entry_value FROM kv_entries WHERE entry_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(kv_entry) > %w", err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.upsert, key, value); err != nil {
		return fmt.Errorf("db.ExecContext(upsert kv_entry) > %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE entry_key = ?", key); err != nil {
		return fmt.Errorf("db.ExecContext(delete kv_entry) > %w", err)
	}
	return nil
}

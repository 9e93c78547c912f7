// Package database provides database connection management for the SQL-backed key-value store.
package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/schemas"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// OpenMySQL opens a MySQL connection using the provided config.
func OpenMySQL(cfg config.MySQLConfig) (*sqlx.DB, error) {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.Username
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.ParseTime = true
	if cfg.TLS {
		mysqlCfg.TLSConfig = "true"
	}
	if len(cfg.Params) > 0 {
		mysqlCfg.Params = cfg.Params
	}

	db, err := sqlx.Open(DriverMySQL, mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return db, nil
}

// OpenSQLite opens a SQLite database file, creating it when it does not exist.
func OpenSQLite(cfg config.SQLiteConfig) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sqlx.Open(DriverSQLite, fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate applies the embedded migrations for the database driver in version order.
// Every migration is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	files, err := fs.Glob(schemas.Migrations, "migrations/*."+db.DriverName()+".sql")
	if err != nil {
		return fmt.Errorf("fs.Glob > %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}
	sort.Strings(files)

	for _, file := range files {
		stmt, err := fs.ReadFile(schemas.Migrations, file)
		if err != nil {
			return fmt.Errorf("fs.ReadFile(%s) > %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("db.ExecContext(%s) > %w", path.Base(file), err)
		}
	}
	return nil
}

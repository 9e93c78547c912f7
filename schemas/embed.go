// Package schemas provides embedded SQL migration files.
//
// Files are named <version>_<name>.<driver>.sql, where driver is the database/sql driver name.
package schemas

import "embed"

// Migrations contains all SQL migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:build !cgo_sqlite

package database

import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver snapshots and sqlite sources open.
const DriverName = "sqlite"

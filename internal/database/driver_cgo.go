//go:build cgo_sqlite

package database

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the cgo SQLite driver, selected with -tags cgo_sqlite.
const DriverName = "sqlite3"

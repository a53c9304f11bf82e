//go:build cgo_sqlite

package journal

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

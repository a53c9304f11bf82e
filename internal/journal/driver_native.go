//go:build !cgo_sqlite

package journal

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

//go:build !sqlite_cgo

package sqlite

// Default build: pure Go SQLite, no C compiler needed. FTS5 is compiled in.
// Build with -tags sqlite_cgo to use the cgo driver instead.

import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used by New.
const DriverName = "sqlite"

//go:build sqlite_cgo

package sqlite

// cgo build: links the bundled SQLite C library. FTS5 requires building with
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo sqlite_fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used by New.
const DriverName = "sqlite3"

package sql

// Register the backend drivers so Open works without caller-side blank
// imports. Postgres via lib/pq, MySQL via go-sql-driver, SQLite (and
// the in-memory variant) via the pure-Go modernc build.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

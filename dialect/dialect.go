// Package dialect provides the storage-backend abstraction: dialect
// constants, the Driver and Tx interfaces, and backend capability
// flags. The engine never opens or pools connections itself; it is
// handed an already-configured Driver.
package dialect

import "context"

// Supported backends. Memory is the in-memory variant of SQLite and is
// treated as SQLite everywhere except connection setup.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Memory   = "memory"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in
	// SQL, INSERT or UPDATE. It scans the result into the pointer v.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all database operations.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps transaction commit and rollback around ExecQuerier.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Valid reports whether name is a supported dialect.
func Valid(name string) bool {
	switch name {
	case Postgres, MySQL, SQLite, Memory:
		return true
	}
	return false
}

// SupportsReturning reports whether the backend can return the affected
// row directly from a write statement. Backends without it take the
// write-then-read-back path.
func SupportsReturning(name string) bool {
	switch name {
	case Postgres, SQLite, Memory:
		return true
	}
	return false
}

// Package tabula is a declarative schema engine. A single column
// specification is turned into several consistent derived artifacts:
// access-control sets, an input-processing pipeline, an executable
// validation schema, a structural interchange schema, and a CRUD
// repository with dialect-aware execution.
//
// The typical flow is:
//
//	desc, err := table.New("User", dialect.Postgres).
//	    Columns(
//	        column.UUID("id").PrimaryKey().DefaultRandom(),
//	        column.Varchar("email", 255).Required(),
//	        column.Varchar("name", 255),
//	    ).
//	    Indexes(index.Fields("email").Unique()).
//	    Build()
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	users, err := repo.New(drv, desc, nil)
//	row, err := users.Create(ctx, tabula.Row{"email": "a@b.com"})
package tabula

// Row is a single record exchanged with the engine: raw caller input,
// prepared input, and rows read back from the store.
type Row = map[string]any

// Value is a single column value.
type Value = any

type absent struct{}

// Absent is the sentinel for a key the caller deliberately marked as
// not supplied. The prep pipeline drops such keys before any transform
// runs, so a transform is never invoked on a value that was never there.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

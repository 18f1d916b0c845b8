package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/tabula/dialect"
)

// Builder accumulates a statement with dialect-aware placeholders and
// identifier quoting. Postgres uses $N placeholders; MySQL and SQLite
// use ?.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// NewBuilder returns a Builder for the given dialect.
func NewBuilder(d string) *Builder {
	return &Builder{dialect: d}
}

func (b *Builder) postgres() bool { return b.dialect == dialect.Postgres }

func (b *Builder) sqlite() bool {
	return b.dialect == dialect.SQLite || b.dialect == dialect.Memory
}

// WriteString appends raw SQL text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	switch {
	case b.postgres() || b.sqlite():
		b.sb.WriteString(`"` + name + `"`)
	default:
		b.sb.WriteString("`" + name + "`")
	}
	return b
}

// Arg appends a placeholder and records its argument.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.postgres() {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteString("?")
	}
	return b
}

// String returns the accumulated SQL.
func (b *Builder) String() string { return b.sb.String() }

// Args returns the accumulated arguments.
func (b *Builder) Args() []any { return b.args }

// Predicate appends a condition to a WHERE clause.
type Predicate func(*Builder)

// EQ returns a column = value predicate.
func EQ(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col).WriteString(" = ").Arg(v)
	}
}

// In returns a column IN (...) predicate. An empty list never matches.
func In(col string, vs ...any) Predicate {
	return func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN (")
		for i, v := range vs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteString(")")
	}
}

// And combines predicates conjunctively.
func And(ps ...Predicate) Predicate {
	return func(b *Builder) {
		for i, p := range ps {
			if i > 0 {
				b.WriteString(" AND ")
			}
			p(b)
		}
	}
}

// SelectBuilder builds a SELECT statement.
type SelectBuilder struct {
	dialect string
	table   string
	columns []string
	preds   []Predicate
	orderBy []string
	limit   int
}

// Select starts a SELECT over the given columns. An empty list selects *.
func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns, limit: -1}
}

// Dialect sets the builder dialect.
func (s *SelectBuilder) Dialect(d string) *SelectBuilder {
	s.dialect = d
	return s
}

// From sets the table.
func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.table = table
	return s
}

// Where appends a predicate, AND-combined with earlier ones.
func (s *SelectBuilder) Where(p Predicate) *SelectBuilder {
	s.preds = append(s.preds, p)
	return s
}

// OrderBy appends ordering columns.
func (s *SelectBuilder) OrderBy(columns ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, columns...)
	return s
}

// Limit caps the number of returned rows.
func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

// Query returns the SQL string and its arguments.
func (s *SelectBuilder) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range s.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	b.WriteString(" FROM ").Ident(s.table)
	writeWhere(b, s.preds)
	for i, c := range s.orderBy {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(c)
	}
	if s.limit >= 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return b.String(), b.Args()
}

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning []string
}

// Insert starts an INSERT into the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Dialect sets the builder dialect.
func (i *InsertBuilder) Dialect(d string) *InsertBuilder {
	i.dialect = d
	return i
}

// Set appends a column/value pair.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.columns = append(i.columns, column)
	i.values = append(i.values, v)
	return i
}

// Returning adds a RETURNING clause. Ignored by backends without
// returning support.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Query returns the SQL string and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	if len(i.columns) == 0 {
		b.WriteString(" DEFAULT VALUES")
	} else {
		b.WriteString(" (")
		for n, c := range i.columns {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
		b.WriteString(") VALUES (")
		for n, v := range i.values {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteString(")")
	}
	writeReturning(b, i.dialect, i.returning)
	return b.String(), b.Args()
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	preds     []Predicate
	returning []string
}

// Update starts an UPDATE of the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Dialect sets the builder dialect.
func (u *UpdateBuilder) Dialect(d string) *UpdateBuilder {
	u.dialect = d
	return u
}

// Set appends a column/value assignment.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Where appends a predicate, AND-combined with earlier ones.
func (u *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	u.preds = append(u.preds, p)
	return u
}

// Returning adds a RETURNING clause. Ignored by backends without
// returning support.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = columns
	return u
}

// Query returns the SQL string and its arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for n, c := range u.columns {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Arg(u.values[n])
	}
	writeWhere(b, u.preds)
	writeReturning(b, u.dialect, u.returning)
	return b.String(), b.Args()
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	dialect string
	table   string
	preds   []Predicate
}

// Delete starts a DELETE from the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Dialect sets the builder dialect.
func (d *DeleteBuilder) Dialect(dl string) *DeleteBuilder {
	d.dialect = dl
	return d
}

// Where appends a predicate, AND-combined with earlier ones.
func (d *DeleteBuilder) Where(p Predicate) *DeleteBuilder {
	d.preds = append(d.preds, p)
	return d
}

// Query returns the SQL string and its arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ").Ident(d.table)
	writeWhere(b, d.preds)
	return b.String(), b.Args()
}

func writeWhere(b *Builder, preds []Predicate) {
	if len(preds) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	And(preds...)(b)
}

func writeReturning(b *Builder, d string, columns []string) {
	if len(columns) == 0 || !dialect.SupportsReturning(d) {
		return
	}
	b.WriteString(" RETURNING ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
}

// Asc is a helper for readable OrderBy calls.
func Asc(column string) string { return column }

// Desc marks a column for descending order.
func Desc(column string) string { return fmt.Sprintf("%s DESC", column) }

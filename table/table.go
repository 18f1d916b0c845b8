// Package table composes the column mapper, the access deriver, the
// index builder and the schema generator into one immutable table
// descriptor.
package table

import (
	"fmt"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
	sqlschema "github.com/syssam/tabula/dialect/sql/schema"
	"github.com/syssam/tabula/schema/access"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schemaset"
)

// Audit column names injected by default.
const (
	CreatedColumn = "created_at"
	UpdatedColumn = "updated_at"
)

// Builder assembles a table definition.
type Builder struct {
	name         string
	dialect      string
	cols         []*column.Descriptor
	idxs         []*index.Descriptor
	compositeKey []string
	noTimestamps bool
	accessOpts   []access.Option
	registry     *assertion.Registry
}

// New starts a table definition. An entity-style name is normalized to
// its snake_case plural table name ("User" becomes "users"); an
// already-normalized name passes through unchanged.
func New(name, dialect string) *Builder {
	return &Builder{
		name:    inflect.Pluralize(inflect.Underscore(name)),
		dialect: dialect,
	}
}

// TableName overrides the derived table name.
func (b *Builder) TableName(name string) *Builder {
	b.name = name
	return b
}

// Columns appends column declarations.
func (b *Builder) Columns(cols ...*column.Builder) *Builder {
	for _, c := range cols {
		b.cols = append(b.cols, c.Descriptor())
	}
	return b
}

// Indexes appends index declarations.
func (b *Builder) Indexes(idxs ...*index.Builder) *Builder {
	for _, i := range idxs {
		b.idxs = append(b.idxs, i.Descriptor())
	}
	return b
}

// CompositeKey declares an ordered multi-column primary key. The
// single-column primary-key modifier is stripped from the constituents
// and a table-level constraint is attached instead.
func (b *Builder) CompositeKey(cols ...string) *Builder {
	b.compositeKey = cols
	return b
}

// WithoutTimestamps opts out of the injected created_at/updated_at
// audit columns.
func (b *Builder) WithoutTimestamps() *Builder {
	b.noTimestamps = true
	return b
}

// Access layers caller overrides on the derived access set.
func (b *Builder) Access(opts ...access.Option) *Builder {
	b.accessOpts = append(b.accessOpts, opts...)
	return b
}

// Assertions sets the registry backing validate callbacks. Defaults to
// the built-in registry.
func (b *Builder) Assertions(reg *assertion.Registry) *Builder {
	b.registry = reg
	return b
}

// Build runs the full composition: audit columns, primary-key
// resolution, backend-native columns and indexes, access derivation and
// schema generation, freezing the result into an immutable Descriptor.
func (b *Builder) Build() (*Descriptor, error) {
	if len(b.cols) == 0 {
		return nil, tabula.NewDefinitionError(b.name, "", "table declares no columns")
	}
	cols := make([]*column.Descriptor, len(b.cols))
	copy(cols, b.cols)
	byName := make(map[string]*column.Descriptor, len(cols))
	for _, c := range cols {
		if !c.Raw && !c.Type.Valid() {
			return nil, tabula.NewDefinitionError(b.name, c.Name, "column has no type")
		}
		if _, ok := byName[c.Name]; ok {
			return nil, tabula.NewDefinitionError(b.name, c.Name, "duplicate column name")
		}
		byName[c.Name] = c
	}
	if !b.noTimestamps {
		for _, name := range []string{CreatedColumn, UpdatedColumn} {
			if _, ok := byName[name]; ok {
				continue
			}
			c := column.Time(name).NotNull().DefaultNow().Descriptor()
			c.Readonly = true
			cols = append(cols, c)
			byName[name] = c
		}
	}
	pk, err := resolveKey(b.name, cols, byName, b.compositeKey)
	if err != nil {
		return nil, err
	}
	accessOpts := b.accessOpts
	if writableKey(cols, byName, pk) {
		accessOpts = append(accessOpts, access.WritableKey())
	}
	set, err := access.Derive(cols, accessOpts...)
	if err != nil {
		if de, ok := err.(*tabula.DefinitionError); ok && de.Table == "" {
			de.Table = b.name
		}
		return nil, err
	}
	sqlTable, err := sqlschema.BuildTable(b.dialect, b.name, cols, pk, b.idxs)
	if err != nil {
		return nil, err
	}
	reg := b.registry
	if reg == nil {
		reg = assertion.NewRegistry()
	}
	d := &Descriptor{
		name:     b.name,
		dialect:  b.dialect,
		cols:     cols,
		byName:   byName,
		pk:       pk,
		access:   set,
		sqlTable: sqlTable,
		registry: reg,
	}
	d.schemas = schemaset.Generate(cols, set, reg)
	return d, nil
}

// resolveKey applies the primary-key rules: an explicit composite key
// wins and strips per-column flags; otherwise a single flagged column;
// otherwise a conventional id column; otherwise the definition fails.
func resolveKey(table string, cols []*column.Descriptor, byName map[string]*column.Descriptor, composite []string) ([]string, error) {
	if len(composite) > 0 {
		for _, name := range composite {
			c, ok := byName[name]
			if !ok {
				return nil, tabula.NewDefinitionError(table, name, "composite key references unknown column")
			}
			c.PrimaryKey = false
			c.NotNull = true
		}
		return composite, nil
	}
	var flagged []string
	for _, c := range cols {
		if c.PrimaryKey {
			flagged = append(flagged, c.Name)
		}
	}
	switch len(flagged) {
	case 1:
		return flagged, nil
	case 0:
		if c, ok := byName["id"]; ok {
			c.PrimaryKey = true
			return []string{"id"}, nil
		}
		return nil, tabula.NewDefinitionError(table, "", "no primary key: flag a column or declare an id column")
	default:
		return nil, tabula.NewDefinitionError(table, "",
			fmt.Sprintf("ambiguous primary key %v: use CompositeKey for multi-column keys", flagged))
	}
}

// writableKey reports whether primary-key columns stay writable: always
// for composite keys (every key column must be supplied by the caller)
// and for single keys without a generated default.
func writableKey(cols []*column.Descriptor, byName map[string]*column.Descriptor, pk []string) bool {
	if len(pk) > 1 {
		return true
	}
	c := byName[pk[0]]
	return c.DefaultKind == column.DefaultNone
}

// Descriptor is the immutable table definition: the column
// specification, the derived access set, the backend-native table, the
// primary key and the generated schema set. It is never mutated after
// Build, except to splice in a caller-registered assertion set before
// first repository use.
type Descriptor struct {
	name     string
	dialect  string
	cols     []*column.Descriptor
	byName   map[string]*column.Descriptor
	pk       []string
	access   *access.Set
	sqlTable *sqlschema.Table
	registry *assertion.Registry

	mu      sync.Mutex
	used    bool
	schemas *schemaset.Set
}

// Name returns the table name.
func (d *Descriptor) Name() string { return d.name }

// Dialect returns the backend dialect.
func (d *Descriptor) Dialect() string { return d.dialect }

// Columns returns the column specification in declaration order.
func (d *Descriptor) Columns() []*column.Descriptor { return d.cols }

// Column returns the column with the given name.
func (d *Descriptor) Column(name string) (*column.Descriptor, bool) {
	c, ok := d.byName[name]
	return c, ok
}

// PrimaryKey returns the primary-key column names, ordered.
func (d *Descriptor) PrimaryKey() []string { return d.pk }

// HasCompositeKey reports whether the primary key spans multiple
// columns.
func (d *Descriptor) HasCompositeKey() bool { return len(d.pk) > 1 }

// Access returns the derived access set.
func (d *Descriptor) Access() *access.Set { return d.access }

// SQLTable returns the backend-native table descriptor.
func (d *Descriptor) SQLTable() *sqlschema.Table { return d.sqlTable }

// Registry returns the assertion registry backing the descriptor's
// schemas.
func (d *Descriptor) Registry() *assertion.Registry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry
}

// Schemas returns the generated schema set.
func (d *Descriptor) Schemas() *schemaset.Set {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schemas
}

// UseAssertions splices a caller-registered assertion set into the
// descriptor, regenerating the schema set. It must happen before the
// descriptor's first repository use.
func (d *Descriptor) UseAssertions(reg *assertion.Registry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.used {
		return tabula.NewDefinitionError(d.name, "", "assertions must be registered before first use")
	}
	d.registry = reg
	d.schemas = schemaset.Generate(d.cols, d.access, reg)
	return nil
}

// Use marks the descriptor as in use, freezing the assertion splice.
// Repositories call it once at construction.
func (d *Descriptor) Use() {
	d.mu.Lock()
	d.used = true
	d.mu.Unlock()
}

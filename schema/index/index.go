// Package index provides a fluent builder for table index definitions.
//
//	index.Fields("email").Unique()
//	index.Fields("status", "created_at").StorageKey("idx_status_created")
//	index.Fields("email").Unique().Where("deleted_at IS NULL")
//	index.Raw("location_gist", "CREATE INDEX ... USING gist (location)")
//
// A single-column index is simply Fields with one name. When no
// StorageKey is given, the index name is derived at table-build time as
// {table}_{fields}_unique or {table}_{fields}_idx.
package index

// Descriptor is a single index declaration.
type Descriptor struct {
	Fields     []string // referenced column names
	Unique     bool
	StorageKey string // explicit index name; derived when empty
	Where      string // partial-index predicate, passed through as-is

	// Raw marks an escape-hatch index. RawDef is the backend-native
	// definition, opaque to the engine.
	Raw    bool
	RawDef any
}

// Builder wraps a Descriptor with a fluent modifier API.
type Builder struct {
	desc *Descriptor
}

// Fields returns an index builder over the given columns.
func Fields(names ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: names}}
}

// Raw returns an escape-hatch index builder. def is the backend-native
// index definition and is passed through opaquely under the given name.
func Raw(name string, def any) *Builder {
	return &Builder{desc: &Descriptor{StorageKey: name, Raw: true, RawDef: def}}
}

// Unique marks the index as unique.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// StorageKey sets an explicit index name, overriding the derived one.
func (b *Builder) StorageKey(name string) *Builder {
	b.desc.StorageKey = name
	return b
}

// Where sets a partial-index predicate. Support varies by backend; the
// predicate is handed to the backend as-is, never emulated.
func (b *Builder) Where(pred string) *Builder {
	b.desc.Where = pred
	return b
}

// Descriptor returns the underlying index descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

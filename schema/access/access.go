// Package access derives the read/write column partitions of a table
// from its column specification. Derivation is a pure function: the
// same specification and overrides always produce the same Set.
package access

import (
	"fmt"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/schema/column"
)

// Set holds the four derived column-name partitions. It is immutable
// after derivation and safe for unbounded concurrent read access.
type Set struct {
	Selectable []string // all minus hidden
	Writable   []string // all minus readonly, minus primary key unless excepted
	Hidden     []string
	Readonly   []string

	selectable map[string]struct{}
	writable   map[string]struct{}
	readonly   map[string]struct{}
}

// IsSelectable reports whether the column is included in reads.
func (s *Set) IsSelectable(name string) bool {
	_, ok := s.selectable[name]
	return ok
}

// IsWritable reports whether the column is included in writes.
func (s *Set) IsWritable(name string) bool {
	_, ok := s.writable[name]
	return ok
}

// IsReadonly reports whether the column is excluded from writes by a
// readonly flag or override.
func (s *Set) IsReadonly(name string) bool {
	_, ok := s.readonly[name]
	return ok
}

// Option layers caller overrides on top of the per-column flags.
type Option func(*options)

type options struct {
	hidden      []string
	readonly    []string
	writableKey bool
}

// Hidden marks extra columns as excluded from reads.
func Hidden(names ...string) Option {
	return func(o *options) { o.hidden = append(o.hidden, names...) }
}

// Readonly marks extra columns as excluded from writes.
func Readonly(names ...string) Option {
	return func(o *options) { o.readonly = append(o.readonly, names...) }
}

// WritableKey keeps primary-key columns in the writable set. Without
// it, primary keys are excluded from writes.
func WritableKey() Option {
	return func(o *options) { o.writableKey = true }
}

// Derive computes the Set for a column specification. Overrides must
// reference declared columns. A column that ends up both readonly and
// required, or both readonly and hidden, violates the definition
// contract and fails with a DefinitionError.
func Derive(cols []*column.Descriptor, opts ...Option) (*Set, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	byName := make(map[string]*column.Descriptor, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	hidden := make(map[string]bool, len(o.hidden))
	readonly := make(map[string]bool, len(o.readonly))
	for _, name := range o.hidden {
		if _, ok := byName[name]; !ok {
			return nil, tabula.NewDefinitionError("", name, "hidden override references unknown column")
		}
		hidden[name] = true
	}
	for _, name := range o.readonly {
		if _, ok := byName[name]; !ok {
			return nil, tabula.NewDefinitionError("", name, "readonly override references unknown column")
		}
		readonly[name] = true
	}
	s := &Set{
		selectable: make(map[string]struct{}, len(cols)),
		writable:   make(map[string]struct{}, len(cols)),
		readonly:   make(map[string]struct{}, len(cols)),
	}
	for _, c := range cols {
		h := c.Hidden || hidden[c.Name]
		ro := c.Readonly || readonly[c.Name]
		if ro && c.Required {
			return nil, tabula.NewDefinitionError("", c.Name,
				"column cannot be both readonly and required: a required field that can never be written is unsatisfiable")
		}
		if ro && h {
			return nil, tabula.NewDefinitionError("", c.Name,
				"column cannot be both readonly and hidden: it would be unreachable in both directions")
		}
		if h {
			s.Hidden = append(s.Hidden, c.Name)
		} else {
			s.Selectable = append(s.Selectable, c.Name)
			s.selectable[c.Name] = struct{}{}
		}
		if ro {
			s.Readonly = append(s.Readonly, c.Name)
			s.readonly[c.Name] = struct{}{}
			continue
		}
		if c.PrimaryKey && !o.writableKey {
			continue
		}
		s.Writable = append(s.Writable, c.Name)
		s.writable[c.Name] = struct{}{}
	}
	return s, nil
}

// MustDerive is like Derive but panics on error. Intended for static
// specifications known to be valid.
func MustDerive(cols []*column.Descriptor, opts ...Option) *Set {
	s, err := Derive(cols, opts...)
	if err != nil {
		panic(fmt.Sprintf("access: %v", err))
	}
	return s
}

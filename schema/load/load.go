// Package load reads declarative table specifications from YAML
// documents and feeds them into the same builder the Go DSL uses.
//
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: uuid, primary_key: true, default: random}
//	      - {name: email, type: varchar, size: 255, required: true}
//	    indexes:
//	      - {fields: [email], unique: true}
package load

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/schema/access"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/table"
)

// File is a parsed specification document.
type File struct {
	Tables []*TableSpec `yaml:"tables"`
}

// TableSpec is one declarative table definition.
type TableSpec struct {
	Name              string        `yaml:"name"`
	Columns           []*ColumnSpec `yaml:"columns"`
	Indexes           []*IndexSpec  `yaml:"indexes"`
	CompositeKey      []string      `yaml:"composite_key"`
	WithoutTimestamps bool          `yaml:"without_timestamps"`
	Hidden            []string      `yaml:"hidden"`
	Readonly          []string      `yaml:"readonly"`
}

// ColumnSpec is one declarative column definition.
type ColumnSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Elem       string `yaml:"elem"`
	Size       int    `yaml:"size"`
	Precision  int    `yaml:"precision"`
	Scale      int    `yaml:"scale"`
	PrimaryKey bool   `yaml:"primary_key"`
	NotNull    bool   `yaml:"not_null"`
	Required   bool   `yaml:"required"`
	Readonly   bool   `yaml:"readonly"`
	Hidden     bool   `yaml:"hidden"`
	Default    any    `yaml:"default"`
	Raw        string `yaml:"raw"`
}

// IndexSpec is one declarative index definition.
type IndexSpec struct {
	Fields []string `yaml:"fields"`
	Unique bool     `yaml:"unique"`
	Name   string   `yaml:"name"`
	Where  string   `yaml:"where"`
	Raw    string   `yaml:"raw"`
}

// Parse reads a specification document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("load: parse: %w", err)
	}
	return &f, nil
}

// ParseFile reads a specification document from a file.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

var columnTypes = map[string]column.Type{
	"string":  column.TypeString,
	"varchar": column.TypeVarchar,
	"text":    column.TypeText,
	"int":     column.TypeInt,
	"bigint":  column.TypeBigInt,
	"float":   column.TypeFloat,
	"decimal": column.TypeDecimal,
	"bool":    column.TypeBool,
	"time":    column.TypeTime,
	"uuid":    column.TypeUUID,
	"json":    column.TypeJSON,
	"array":   column.TypeArray,
}

// Column converts the spec to a column builder.
func (s *ColumnSpec) Column() (*column.Builder, error) {
	if s.Name == "" {
		return nil, tabula.NewDefinitionError("", "", "column declares no name")
	}
	var b *column.Builder
	switch {
	case s.Raw != "":
		b = column.Raw(s.Name, s.Raw)
	default:
		t, ok := columnTypes[s.Type]
		if !ok {
			return nil, tabula.NewDefinitionError("", s.Name, fmt.Sprintf("unknown column type %q", s.Type))
		}
		switch t {
		case column.TypeVarchar:
			b = column.Varchar(s.Name, s.Size)
		case column.TypeDecimal:
			b = column.Decimal(s.Name, s.Precision, s.Scale)
		case column.TypeArray:
			elem, ok := columnTypes[s.Elem]
			if !ok {
				return nil, tabula.NewDefinitionError("", s.Name, fmt.Sprintf("unknown element type %q", s.Elem))
			}
			b = column.Array(s.Name, elem)
		default:
			b = builderFor(s.Name, t)
		}
	}
	if s.PrimaryKey {
		b.PrimaryKey()
	}
	if s.NotNull {
		b.NotNull()
	}
	if s.Required {
		b.Required()
	}
	if s.Readonly {
		b.Readonly()
	}
	if s.Hidden {
		b.Hidden()
	}
	switch d := s.Default.(type) {
	case nil:
	case string:
		switch d {
		case "random":
			b.DefaultRandom()
		case "now":
			b.DefaultNow()
		default:
			b.Default(d)
		}
	default:
		b.Default(d)
	}
	return b, nil
}

func builderFor(name string, t column.Type) *column.Builder {
	switch t {
	case column.TypeString:
		return column.String(name)
	case column.TypeText:
		return column.Text(name)
	case column.TypeInt:
		return column.Int(name)
	case column.TypeBigInt:
		return column.BigInt(name)
	case column.TypeFloat:
		return column.Float(name)
	case column.TypeBool:
		return column.Bool(name)
	case column.TypeTime:
		return column.Time(name)
	case column.TypeUUID:
		return column.UUID(name)
	case column.TypeJSON:
		return column.JSON(name)
	default:
		return column.String(name)
	}
}

// Index converts the spec to an index builder.
func (s *IndexSpec) Index() *index.Builder {
	if s.Raw != "" {
		return index.Raw(s.Name, s.Raw)
	}
	b := index.Fields(s.Fields...)
	if s.Unique {
		b.Unique()
	}
	if s.Name != "" {
		b.StorageKey(s.Name)
	}
	if s.Where != "" {
		b.Where(s.Where)
	}
	return b
}

// Builder converts the table spec into a table builder for the given
// dialect.
func (s *TableSpec) Builder(dialect string) (*table.Builder, error) {
	if s.Name == "" {
		return nil, tabula.NewDefinitionError("", "", "table declares no name")
	}
	b := table.New(s.Name, dialect)
	for _, cs := range s.Columns {
		cb, err := cs.Column()
		if err != nil {
			if de, ok := err.(*tabula.DefinitionError); ok && de.Table == "" {
				de.Table = s.Name
			}
			return nil, err
		}
		b.Columns(cb)
	}
	for _, is := range s.Indexes {
		b.Indexes(is.Index())
	}
	if len(s.CompositeKey) > 0 {
		b.CompositeKey(s.CompositeKey...)
	}
	if s.WithoutTimestamps {
		b.WithoutTimestamps()
	}
	if len(s.Hidden) > 0 {
		b.Access(access.Hidden(s.Hidden...))
	}
	if len(s.Readonly) > 0 {
		b.Access(access.Readonly(s.Readonly...))
	}
	return b, nil
}

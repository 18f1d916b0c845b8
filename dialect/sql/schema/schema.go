// Package schema holds the backend-native table, column and index
// descriptors, and the dialect column mapper that derives them from
// abstract column declarations. The descriptors are the shape handed to
// an external schema-diffing tool; this package never generates DDL or
// applies migrations itself.
package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schema/index"
)

// Column is a backend-native column descriptor.
type Column struct {
	Name       string
	Type       string // native column type, e.g. "varchar(255)"
	Abstract   column.Type
	Nullable   bool
	PrimaryKey bool
	Size       int
	Default    string // native default expression, empty when none

	// Raw carries the caller-supplied backend-native definition of an
	// escape-hatch column. When set, Type holds its string form only if
	// the definition was a string; consumers must treat Raw as opaque.
	Raw any
}

// Index is a backend-native index descriptor.
type Index struct {
	Name    string
	Unique  bool
	Columns []*Column
	Where   string // partial-index predicate, passed through as-is

	// Raw carries the caller-supplied backend-native definition of an
	// escape-hatch index.
	Raw any
}

// Table is a backend-native table descriptor.
type Table struct {
	Name       string
	Dialect    string
	Columns    []*Column
	PrimaryKey []*Column
	Indexes    []*Index

	columns map[string]*Column
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// ColumnType maps an abstract column type tag to the native column type
// for the given dialect. The Memory dialect maps like SQLite.
func ColumnType(d string, c *column.Descriptor) (string, error) {
	if d == dialect.Memory {
		d = dialect.SQLite
	}
	switch d {
	case dialect.Postgres:
		return postgresType(c)
	case dialect.MySQL:
		return mysqlType(c)
	case dialect.SQLite:
		return sqliteType(c)
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
}

func postgresType(c *column.Descriptor) (string, error) {
	switch c.Type {
	case column.TypeString:
		return "varchar", nil
	case column.TypeVarchar:
		return fmt.Sprintf("varchar(%d)", c.Size), nil
	case column.TypeText:
		return "text", nil
	case column.TypeInt:
		return "integer", nil
	case column.TypeBigInt:
		return "bigint", nil
	case column.TypeFloat:
		return "double precision", nil
	case column.TypeDecimal:
		return fmt.Sprintf("numeric(%d,%d)", c.Precision, c.Scale), nil
	case column.TypeBool:
		return "boolean", nil
	case column.TypeTime:
		return "timestamptz", nil
	case column.TypeUUID:
		return "uuid", nil
	case column.TypeJSON:
		return "jsonb", nil
	case column.TypeArray:
		elem, err := postgresType(&column.Descriptor{Type: c.Elem})
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", c.Type)
	}
}

func mysqlType(c *column.Descriptor) (string, error) {
	switch c.Type {
	case column.TypeString:
		return "varchar(255)", nil
	case column.TypeVarchar:
		return fmt.Sprintf("varchar(%d)", c.Size), nil
	case column.TypeText:
		return "longtext", nil
	case column.TypeInt:
		return "int", nil
	case column.TypeBigInt:
		return "bigint", nil
	case column.TypeFloat:
		return "double", nil
	case column.TypeDecimal:
		return fmt.Sprintf("decimal(%d,%d)", c.Precision, c.Scale), nil
	case column.TypeBool:
		return "tinyint(1)", nil
	case column.TypeTime:
		return "datetime", nil
	case column.TypeUUID:
		return "char(36)", nil
	case column.TypeJSON, column.TypeArray:
		// MySQL has no array columns; arrays degrade to json documents.
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", c.Type)
	}
}

func sqliteType(c *column.Descriptor) (string, error) {
	switch c.Type {
	case column.TypeString, column.TypeVarchar, column.TypeText,
		column.TypeUUID, column.TypeTime, column.TypeJSON, column.TypeArray:
		return "text", nil
	case column.TypeInt, column.TypeBigInt, column.TypeBool:
		return "integer", nil
	case column.TypeFloat:
		return "real", nil
	case column.TypeDecimal:
		return "numeric", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", c.Type)
	}
}

// defaultExpr returns the native default expression for a column, or
// empty when the default is not backend-owned. Random identifiers are
// generated client-side before the write and never become a backend
// default.
func defaultExpr(d string, c *column.Descriptor) string {
	switch c.DefaultKind {
	case column.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case column.DefaultLiteral:
		switch v := c.Default.(type) {
		case string:
			return "'" + strings.ReplaceAll(v, "'", "''") + "'"
		case bool:
			if d == dialect.MySQL || d == dialect.SQLite || d == dialect.Memory {
				if v {
					return "1"
				}
				return "0"
			}
			return fmt.Sprintf("%t", v)
		default:
			return fmt.Sprintf("%v", v)
		}
	default:
		return ""
	}
}

// BuildColumn derives the backend-native column from an abstract
// declaration, applying the fixed order: type, primary key, not null,
// default, caller customization. Raw columns pass through opaquely.
func BuildColumn(d string, c *column.Descriptor) (*Column, error) {
	if c.Raw {
		nc := &Column{Name: c.Name, Raw: c.RawDef, Nullable: true}
		if s, ok := c.RawDef.(string); ok {
			nc.Type = s
		}
		if c.Custom != nil {
			c.Custom(nc)
		}
		return nc, nil
	}
	nt, err := ColumnType(d, c)
	if err != nil {
		return nil, tabula.NewDefinitionError("", c.Name, err.Error())
	}
	nc := &Column{
		Name:     c.Name,
		Type:     nt,
		Abstract: c.Type,
		Size:     c.Size,
	}
	nc.PrimaryKey = c.PrimaryKey
	nc.Nullable = !c.NotNull && !c.PrimaryKey
	nc.Default = defaultExpr(d, c)
	if c.Custom != nil {
		c.Custom(nc)
	}
	return nc, nil
}

// BuildIndexes resolves index declarations against the built columns:
// every referenced column must exist, and unnamed indexes get the
// derived {table}_{fields}_unique or {table}_{fields}_idx name.
func BuildIndexes(t *Table, idxs []*index.Descriptor) ([]*Index, error) {
	out := make([]*Index, 0, len(idxs))
	for _, d := range idxs {
		if d.Raw {
			out = append(out, &Index{Name: d.StorageKey, Raw: d.RawDef})
			continue
		}
		if len(d.Fields) == 0 {
			return nil, tabula.NewDefinitionError(t.Name, "", "index declares no columns")
		}
		ni := &Index{Unique: d.Unique, Where: d.Where}
		for _, name := range d.Fields {
			c, ok := t.Column(name)
			if !ok {
				return nil, tabula.NewDefinitionError(t.Name, name,
					fmt.Sprintf("index references unknown column %q", name))
			}
			ni.Columns = append(ni.Columns, c)
		}
		ni.Name = d.StorageKey
		if ni.Name == "" {
			suffix := "_idx"
			if d.Unique {
				suffix = "_unique"
			}
			ni.Name = t.Name + "_" + strings.Join(d.Fields, "_") + suffix
		}
		out = append(out, ni)
	}
	return out, nil
}

// BuildTable composes the column mapper and the index builder into a
// backend-native table descriptor and validates the result.
func BuildTable(d, name string, cols []*column.Descriptor, pk []string, idxs []*index.Descriptor) (*Table, error) {
	t := &Table{
		Name:    name,
		Dialect: d,
		columns: make(map[string]*Column, len(cols)),
	}
	for _, c := range cols {
		nc, err := BuildColumn(d, c)
		if err != nil {
			if de, ok := err.(*tabula.DefinitionError); ok && de.Table == "" {
				de.Table = name
			}
			return nil, err
		}
		t.Columns = append(t.Columns, nc)
		t.columns[nc.Name] = nc
	}
	for _, key := range pk {
		c, ok := t.Column(key)
		if !ok {
			return nil, tabula.NewDefinitionError(name, key, "primary key references unknown column")
		}
		t.PrimaryKey = append(t.PrimaryKey, c)
	}
	idxList, err := BuildIndexes(t, idxs)
	if err != nil {
		return nil, err
	}
	t.Indexes = idxList
	if result := ValidateTable(t); result.HasErrors() {
		return nil, tabula.NewDefinitionError(name, "", result.String())
	}
	return t, nil
}

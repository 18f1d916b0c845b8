// Package column provides fluent builders for declaring table columns.
//
// A column is either managed (its backend representation is derived from
// an abstract type tag) or raw (the caller supplies the backend-native
// definition, opaque to the engine):
//
//	column.UUID("id").PrimaryKey().DefaultRandom()
//	column.Varchar("email", 255).Required().Transform(column.Chain(column.Trim(), column.Lower()))
//	column.Raw("location", "geography(Point,4326)")
//
// Modifiers are orthogonal to the variant: Readonly excludes the column
// from writes, Hidden from reads, Required makes it mandatory on insert,
// Transform runs before validation, and Validate receives the value plus
// a test-assertion function.
package column

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
)

// Type is the abstract column type tag.
type Type uint8

// Abstract type tags.
const (
	TypeInvalid Type = iota
	TypeString       // unsized string
	TypeVarchar      // bounded string
	TypeText         // long text
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal
	TypeBool
	TypeTime
	TypeUUID
	TypeJSON
	TypeArray
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeString:  "string",
	TypeVarchar: "varchar",
	TypeText:    "text",
	TypeInt:     "int",
	TypeBigInt:  "bigint",
	TypeFloat:   "float",
	TypeDecimal: "decimal",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeUUID:    "uuid",
	TypeJSON:    "json",
	TypeArray:   "array",
}

// String returns the type tag name.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Valid reports whether t is a known type tag.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// DefaultKind describes how a column default is produced.
type DefaultKind uint8

// Default kinds.
const (
	DefaultNone    DefaultKind = iota
	DefaultLiteral             // literal value, owned by the backend
	DefaultRandom              // random identifier, generated client-side before the write
	DefaultNow                 // current timestamp
)

// Transform is a value mapper run before validation. Transforms across
// columns run concurrently and must be side-effect-free with respect to
// each other.
type Transform func(ctx context.Context, v any) (any, error)

// ValidateFunc is a caller validation callback. It receives the value
// and the test-assertion function; failures are accumulated, never
// raised from the callback itself.
type ValidateFunc func(v any, t *assertion.Tester)

// Descriptor is a single column declaration. Builders mutate it in
// place; it is treated as immutable once a table is built.
type Descriptor struct {
	Name        string
	Type        Type
	Elem        Type // element type for TypeArray
	Size        int  // max length for TypeVarchar
	Precision   int  // for TypeDecimal
	Scale       int  // for TypeDecimal
	PrimaryKey  bool
	NotNull     bool
	DefaultKind DefaultKind
	Default     any // literal default when DefaultKind is DefaultLiteral

	Readonly bool
	Hidden   bool
	Required bool

	Transform Transform
	Validate  ValidateFunc

	// Custom is applied to the backend-native column after the fixed
	// build order (type, primary key, not null, default).
	Custom func(native any)

	// Raw marks an escape-hatch column. RawDef is the backend-native
	// definition, opaque to the engine.
	Raw    bool
	RawDef any
}

// Builder wraps a Descriptor with a fluent modifier API.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// String returns an unsized string column builder.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Varchar returns a bounded string column builder.
func Varchar(name string, size int) *Builder {
	b := newBuilder(name, TypeVarchar)
	b.desc.Size = size
	return b
}

// Text returns a long-text column builder.
func Text(name string) *Builder { return newBuilder(name, TypeText) }

// Int returns an integer column builder.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// BigInt returns a 64-bit integer column builder.
func BigInt(name string) *Builder { return newBuilder(name, TypeBigInt) }

// Float returns a floating-point column builder.
func Float(name string) *Builder { return newBuilder(name, TypeFloat) }

// Decimal returns a fixed-precision numeric column builder.
func Decimal(name string, precision, scale int) *Builder {
	b := newBuilder(name, TypeDecimal)
	b.desc.Precision, b.desc.Scale = precision, scale
	return b
}

// Bool returns a boolean column builder.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Time returns a temporal column builder.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// UUID returns a uuid column builder.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// JSON returns an object column builder.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Array returns an array column builder with the given element type.
func Array(name string, elem Type) *Builder {
	b := newBuilder(name, TypeArray)
	b.desc.Elem = elem
	return b
}

// Raw returns an escape-hatch column builder. def is the backend-native
// column definition and is passed through opaquely.
func Raw(name string, def any) *Builder {
	b := &Builder{desc: &Descriptor{Name: name, Raw: true, RawDef: def}}
	return b
}

// PrimaryKey marks the column as the primary key.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.PrimaryKey = true
	return b
}

// NotNull adds a NOT NULL constraint.
func (b *Builder) NotNull() *Builder {
	b.desc.NotNull = true
	return b
}

// Default sets a literal default value, owned by the backend.
func (b *Builder) Default(v any) *Builder {
	b.desc.DefaultKind, b.desc.Default = DefaultLiteral, v
	return b
}

// DefaultRandom tags the column default as a random identifier,
// generated client-side before the write so the key is known for any
// follow-up read.
func (b *Builder) DefaultRandom() *Builder {
	b.desc.DefaultKind = DefaultRandom
	return b
}

// DefaultNow tags the column default as the current timestamp.
func (b *Builder) DefaultNow() *Builder {
	b.desc.DefaultKind = DefaultNow
	return b
}

// Readonly excludes the column from writes.
func (b *Builder) Readonly() *Builder {
	b.desc.Readonly = true
	return b
}

// Hidden excludes the column from reads.
func (b *Builder) Hidden() *Builder {
	b.desc.Hidden = true
	return b
}

// Required makes the column mandatory on insert.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// Transform sets the value mapper run before validation.
func (b *Builder) Transform(fn Transform) *Builder {
	b.desc.Transform = fn
	return b
}

// Validate sets the caller validation callback.
func (b *Builder) Validate(fn ValidateFunc) *Builder {
	b.desc.Validate = fn
	return b
}

// Customize sets a hook applied to the backend-native column after the
// fixed build order.
func (b *Builder) Customize(fn func(native any)) *Builder {
	b.desc.Custom = fn
	return b
}

// Descriptor returns the underlying column descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Check runs the built-in type check for the abstract type against a
// value. The prep pipeline and the schema generator both funnel through
// Check, so they agree on what "valid" means.
func (t Type) Check(v any) error {
	if v == nil {
		return nil
	}
	switch t {
	case TypeString, TypeVarchar, TypeText, TypeUUID:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected a string value, got %T", v)
		}
	case TypeInt, TypeBigInt:
		if !isIntegral(v) {
			return fmt.Errorf("expected an integer value, got %T", v)
		}
	case TypeFloat, TypeDecimal:
		if !isNumber(v) {
			return fmt.Errorf("expected a numeric value, got %T", v)
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected a boolean value, got %T", v)
		}
	case TypeTime:
		if !isTemporal(v) {
			return fmt.Errorf("expected a time value, got %T", v)
		}
	case TypeJSON:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected an object value, got %T", v)
		}
	case TypeArray:
		return nil // element checks happen in CheckValue
	default:
		return fmt.Errorf("unknown column type %q", t)
	}
	return nil
}

// CheckValue runs the full built-in check for a managed column: the base
// type check plus the varchar length bound and array element checks.
// Raw columns pass unconditionally.
func (c *Descriptor) CheckValue(v any) error {
	if c.Raw || v == nil || tabula.IsAbsent(v) {
		return nil
	}
	if c.Type == TypeArray {
		vs, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected an array value, got %T", v)
		}
		for i, ev := range vs {
			if err := c.Elem.Check(ev); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	if err := c.Type.Check(v); err != nil {
		return err
	}
	if c.Type == TypeVarchar && c.Size > 0 {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > c.Size {
			return fmt.Errorf("value exceeds maximum length %d", c.Size)
		}
	}
	return nil
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return n == float32(int64(n))
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func isTemporal(v any) bool {
	switch s := v.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	default:
		return false
	}
}

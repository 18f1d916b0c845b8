// Package schemaset generates, from one column specification, the four
// usage-keyed schema variants (select, create, update, full), each in
// two parallel representations: an executable validation schema and a
// shape-only structural schema for interchange. Both representations
// are built from the same column traversal so they always agree on
// field sets, types and required-ness.
package schemaset

import (
	"context"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
	"github.com/syssam/tabula/schema/access"
	"github.com/syssam/tabula/schema/column"
)

// Usage keys a schema variant.
type Usage uint8

// The four variants.
const (
	// Select describes stored rows: hidden columns excluded, not-null
	// columns mandatory.
	Select Usage = iota
	// Create describes insert input: readonly columns excluded,
	// declared-required columns mandatory.
	Create
	// Update describes update input: readonly columns excluded, every
	// column optional.
	Update
	// Full describes every column, for internal and debug use.
	Full
)

func (u Usage) String() string {
	switch u {
	case Select:
		return "select"
	case Create:
		return "create"
	case Update:
		return "update"
	case Full:
		return "full"
	}
	return "unknown"
}

// Set holds the four generated variants. It is read-only after
// generation and safe for unbounded concurrent use.
type Set struct {
	Select *Variant
	Create *Variant
	Update *Variant
	Full   *Variant
}

// Variant returns the variant for the given usage.
func (s *Set) Variant(u Usage) *Variant {
	switch u {
	case Select:
		return s.Select
	case Create:
		return s.Create
	case Update:
		return s.Update
	default:
		return s.Full
	}
}

// field is one column's slot in a variant, shared by both
// representations.
type field struct {
	col      *column.Descriptor
	required bool
}

// Variant is one usage-keyed schema in both representations.
type Variant struct {
	usage    Usage
	fields   []*field
	byName   map[string]*field
	registry *assertion.Registry
}

// Generate builds the Set for a column specification. The registry
// backs the test-assertion mechanism used by validate refinements, so
// the schema and the prep pipeline agree on what "valid" means.
func Generate(cols []*column.Descriptor, set *access.Set, reg *assertion.Registry) *Set {
	return &Set{
		Select: generate(Select, cols, set, reg),
		Create: generate(Create, cols, set, reg),
		Update: generate(Update, cols, set, reg),
		Full:   generate(Full, cols, set, reg),
	}
}

func generate(u Usage, cols []*column.Descriptor, set *access.Set, reg *assertion.Registry) *Variant {
	v := &Variant{usage: u, registry: reg, byName: make(map[string]*field, len(cols))}
	for _, c := range cols {
		switch u {
		case Select:
			if !set.IsSelectable(c.Name) {
				continue
			}
		case Create, Update:
			if set.IsReadonly(c.Name) {
				continue
			}
		}
		f := &field{col: c}
		switch u {
		case Select, Full:
			f.required = c.NotNull || c.PrimaryKey
		case Create:
			f.required = c.Required
		case Update:
			f.required = false
		}
		v.fields = append(v.fields, f)
		v.byName[c.Name] = f
	}
	return v
}

// Usage returns the variant's usage key.
func (v *Variant) Usage() Usage { return v.usage }

// Fields returns the variant's field names in declaration order.
func (v *Variant) Fields() []string {
	out := make([]string, len(v.fields))
	for i, f := range v.fields {
		out[i] = f.col.Name
	}
	return out
}

// Required returns the variant's required field names in declaration
// order.
func (v *Variant) Required() []string {
	var out []string
	for _, f := range v.fields {
		if f.required {
			out = append(out, f.col.Name)
		}
	}
	return out
}

// Result is the non-throwing validation outcome.
type Result struct {
	Success bool
	Data    tabula.Row
	Errors  []tabula.FieldError
}

// Validate runs the executable schema and returns the transformed data,
// or a single error carrying the complete field-error list.
func (v *Variant) Validate(ctx context.Context, in tabula.Row) (tabula.Row, error) {
	res := v.TryValidate(ctx, in)
	if !res.Success {
		return nil, tabula.NewValidationError(res.Errors)
	}
	return res.Data, nil
}

// TryValidate runs the executable schema without raising: transforms
// compose as value-mapping steps, custom validation composes as a
// refinement funneled through the test-assertion mechanism, and unknown
// fields are rejected. Every failure is accumulated.
func (v *Variant) TryValidate(ctx context.Context, in tabula.Row) *Result {
	var errs []tabula.FieldError
	out := make(tabula.Row, len(in))
	for k := range in {
		if _, ok := v.byName[k]; !ok {
			errs = append(errs, tabula.FieldError{Field: k, Message: "unknown field"})
		}
	}
	for _, f := range v.fields {
		val, present := in[f.col.Name]
		if present && tabula.IsAbsent(val) {
			present = false
		}
		if !present {
			if f.required {
				errs = append(errs, tabula.FieldError{Field: f.col.Name, Message: "missing required field"})
			}
			continue
		}
		if f.col.Transform != nil {
			tv, err := f.col.Transform(ctx, val)
			if err != nil {
				errs = append(errs, tabula.FieldError{Field: f.col.Name, Message: err.Error()})
				continue
			}
			val = tv
		}
		if err := f.col.CheckValue(val); err != nil {
			errs = append(errs, tabula.FieldError{Field: f.col.Name, Message: err.Error()})
			continue
		}
		if f.col.Validate != nil {
			t := assertion.NewTester(v.registry, f.col.Name, &errs)
			f.col.Validate(val, t)
		}
		out[f.col.Name] = val
	}
	if len(errs) > 0 {
		return &Result{Success: false, Errors: errs}
	}
	return &Result{Success: true, Data: out}
}

package schemaset

import "github.com/syssam/tabula/schema/column"

// ExportOptions merge extra shape into a structural export, for
// composition with external contracts.
type ExportOptions struct {
	// AdditionalProperties overrides whether undeclared fields are
	// allowed. Default is reject.
	AdditionalProperties *bool
	// Properties are extra fields merged into the exported properties.
	Properties map[string]any
	// Required are extra required-field names appended to the list.
	Required []string
	// Metadata passthrough for external consumers.
	Title       string
	Description string
	ID          string
}

// propertyShape returns the structural description of one column: type
// tag, declared bounds and element shape. No transforms, no custom
// validation; shape only. Raw columns degrade to an unconstrained
// entry.
func propertyShape(c *column.Descriptor) map[string]any {
	if c.Raw {
		return map[string]any{}
	}
	switch c.Type {
	case column.TypeString, column.TypeText:
		return map[string]any{"type": "string"}
	case column.TypeVarchar:
		p := map[string]any{"type": "string"}
		if c.Size > 0 {
			p["maxLength"] = c.Size
		}
		return p
	case column.TypeUUID:
		return map[string]any{"type": "string", "format": "uuid"}
	case column.TypeTime:
		return map[string]any{"type": "string", "format": "date-time"}
	case column.TypeInt, column.TypeBigInt:
		return map[string]any{"type": "integer"}
	case column.TypeFloat, column.TypeDecimal:
		return map[string]any{"type": "number"}
	case column.TypeBool:
		return map[string]any{"type": "boolean"}
	case column.TypeJSON:
		return map[string]any{"type": "object"}
	case column.TypeArray:
		return map[string]any{
			"type":  "array",
			"items": propertyShape(&column.Descriptor{Type: c.Elem}),
		}
	default:
		return map[string]any{}
	}
}

// Structural exports the variant's shape-only schema:
// {type: "object", properties, required?, additionalProperties, ...}.
// Options merge extra properties, required names and metadata.
func (v *Variant) Structural(opts *ExportOptions) map[string]any {
	if opts == nil {
		opts = &ExportOptions{}
	}
	props := make(map[string]any, len(v.fields))
	for _, f := range v.fields {
		props[f.col.Name] = propertyShape(f.col)
	}
	for k, p := range opts.Properties {
		props[k] = p
	}
	required := v.Required()
	required = append(required, opts.Required...)
	additional := false
	if opts.AdditionalProperties != nil {
		additional = *opts.AdditionalProperties
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": additional,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	if opts.Title != "" {
		out["title"] = opts.Title
	}
	if opts.Description != "" {
		out["description"] = opts.Description
	}
	if opts.ID != "" {
		out["id"] = opts.ID
	}
	return out
}

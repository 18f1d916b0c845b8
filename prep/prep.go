// Package prep implements the four-stage input processor that runs
// before every write: filter, transform, validate, required. Errors
// from the validate and required stages are accumulated across all
// columns and raised as one validation failure, so callers see every
// problem in a single round trip.
package prep

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
	"github.com/syssam/tabula/schema/access"
	"github.com/syssam/tabula/schema/column"
)

// Options control a single pipeline run.
type Options struct {
	// Force passes the input through unchanged and skips every stage.
	// An explicit, auditable bypass.
	Force bool
	// ValidateRequired enables the required stage.
	ValidateRequired bool
	// OnlyWritable restricts the surviving keys to the writable set.
	OnlyWritable bool
}

// Pipeline processes raw input maps against one column specification.
// It is read-only after construction and safe for concurrent use.
type Pipeline struct {
	cols     []*column.Descriptor
	byName   map[string]*column.Descriptor
	access   *access.Set
	registry *assertion.Registry
}

// New returns a Pipeline over the given specification, access set and
// assertion registry.
func New(cols []*column.Descriptor, set *access.Set, reg *assertion.Registry) *Pipeline {
	byName := make(map[string]*column.Descriptor, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	return &Pipeline{cols: cols, byName: byName, access: set, registry: reg}
}

// Run executes the pipeline stages in order and returns the transformed
// map. With Force set it returns the input itself, untouched.
func (p *Pipeline) Run(ctx context.Context, in tabula.Row, opts Options) (tabula.Row, error) {
	if opts.Force {
		return in, nil
	}
	out := p.filter(in, opts)
	if err := p.transform(ctx, out); err != nil {
		return nil, err
	}
	errs := p.validate(out)
	if opts.ValidateRequired {
		errs = p.required(out, errs)
	}
	if len(errs) > 0 {
		return nil, tabula.NewValidationError(errs)
	}
	return out, nil
}

// filter drops keys absent from the specification, keys outside the
// writable set when requested, and keys whose value is the Absent
// sentinel, so later stages never touch a value the caller never
// supplied.
func (p *Pipeline) filter(in tabula.Row, opts Options) tabula.Row {
	out := make(tabula.Row, len(in))
	for k, v := range in {
		if _, ok := p.byName[k]; !ok {
			continue
		}
		if opts.OnlyWritable && !p.access.IsWritable(k) {
			continue
		}
		if tabula.IsAbsent(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// transform runs every surviving column transform concurrently and
// awaits the batch. Transforms are assumed side-effect-free with
// respect to each other; each goroutine owns a distinct result slot.
func (p *Pipeline) transform(ctx context.Context, m tabula.Row) error {
	type slot struct {
		key   string
		value any
	}
	var pending []*slot
	for k, v := range m {
		c := p.byName[k]
		if c.Transform == nil {
			continue
		}
		pending = append(pending, &slot{key: k, value: v})
	}
	if len(pending) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range pending {
		fn := p.byName[s.key].Transform
		g.Go(func() error {
			v, err := fn(gctx, s.value)
			if err != nil {
				return fmt.Errorf("transform %q: %w", s.key, err)
			}
			s.value = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, s := range pending {
		m[s.key] = s.value
	}
	return nil
}

// validate runs the built-in type check for managed columns, then the
// caller's validate callback. A type mismatch records one error and
// skips the callback for that column; all errors across all columns are
// accumulated.
func (p *Pipeline) validate(m tabula.Row) []tabula.FieldError {
	var errs []tabula.FieldError
	for _, c := range p.cols {
		v, ok := m[c.Name]
		if !ok {
			continue
		}
		if err := c.CheckValue(v); err != nil {
			errs = append(errs, tabula.FieldError{Field: c.Name, Message: err.Error()})
			continue
		}
		if c.Validate != nil {
			t := assertion.NewTester(p.registry, c.Name, &errs)
			c.Validate(v, t)
		}
	}
	return errs
}

// required accumulates an error for every required column the filtered
// and transformed input lacks.
func (p *Pipeline) required(m tabula.Row, errs []tabula.FieldError) []tabula.FieldError {
	for _, c := range p.cols {
		if !c.Required {
			continue
		}
		if v, ok := m[c.Name]; !ok || v == nil {
			errs = append(errs, tabula.FieldError{Field: c.Name, Message: "missing required field"})
		}
	}
	return errs
}

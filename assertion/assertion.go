// Package assertion holds named, reusable boolean predicates used by
// column validation. Built-ins cover the common shapes (email, url,
// uuid, numeric, integer, boolean, not_empty); callers may register
// their own, and a caller-supplied name overrides a built-in of the
// same name.
package assertion

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/syssam/tabula"
)

// Func is a single named predicate. It reports whether the value
// satisfies the assertion and must not panic on any input.
type Func func(v any) bool

// Registry maps assertion names to predicates.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns a registry pre-populated with the built-in
// assertions.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func, len(builtins))}
	for name, fn := range builtins {
		r.fns[name] = fn
	}
	return r
}

// Register adds a named assertion. Registering an existing name,
// including a built-in, replaces it.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

// Lookup returns the assertion registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// builtins are the assertions every registry starts with.
var builtins = map[string]Func{
	"email":     isEmail,
	"url":       isURL,
	"numeric":   isNumeric,
	"uuid":      isUUID,
	"boolean":   isBoolean,
	"integer":   isInteger,
	"not_empty": isNotEmpty,
}

func isEmail(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isURL(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isNumeric(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil
	default:
		return false
	}
}

func isUUID(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return uuid.Validate(s) == nil
}

func isBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return n == float32(int64(n))
	case float64:
		return n == float64(int64(n))
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return err == nil
	default:
		return false
	}
}

func isNotEmpty(v any) bool {
	if v == nil || tabula.IsAbsent(v) {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// TestOption customizes the failure message recorded by a Tester.
type TestOption func(*testConfig)

type testConfig struct {
	message string
	rewrite func(string) string
}

// WithMessage replaces the default failure message with a literal one.
func WithMessage(msg string) TestOption {
	return func(c *testConfig) { c.message = msg }
}

// WithMessageFunc rewrites the default failure message.
func WithMessageFunc(fn func(string) string) TestOption {
	return func(c *testConfig) { c.rewrite = fn }
}

// Tester is the test-assertion function handed to validate callbacks.
// Failures are appended to the accumulator as structured field errors;
// Test never panics and never stops a validation run.
type Tester struct {
	field string
	reg   *Registry
	errs  *[]tabula.FieldError
}

// NewTester returns a Tester recording failures for the given field
// into errs.
func NewTester(reg *Registry, field string, errs *[]tabula.FieldError) *Tester {
	return &Tester{field: field, reg: reg, errs: errs}
}

// Field returns the field the tester records failures against.
func (t *Tester) Field() string { return t.field }

// Test runs a registered assertion name or an inline predicate against
// the value. It returns true when the assertion holds, and otherwise
// appends one structured error to the accumulator.
func (t *Tester) Test(v any, assert any, opts ...TestOption) bool {
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var (
		fn   Func
		name string
	)
	switch a := assert.(type) {
	case string:
		reg, ok := t.reg.Lookup(a)
		if !ok {
			t.fail(fmt.Sprintf("unknown assertion %q", a), cfg)
			return false
		}
		fn, name = reg, a
	case Func:
		fn, name = a, "assertion"
	case func(any) bool:
		fn, name = a, "assertion"
	default:
		t.fail(fmt.Sprintf("unsupported assertion type %T", assert), cfg)
		return false
	}
	if fn(v) {
		return true
	}
	t.fail(fmt.Sprintf("%s failed", name), cfg)
	return false
}

func (t *Tester) fail(msg string, cfg *testConfig) {
	switch {
	case cfg.message != "":
		msg = cfg.message
	case cfg.rewrite != nil:
		msg = cfg.rewrite(msg)
	}
	*t.errs = append(*t.errs, tabula.FieldError{Field: t.field, Message: msg})
}

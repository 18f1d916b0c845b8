package assertion_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
)

func TestBuiltins(t *testing.T) {
	t.Parallel()

	reg := assertion.NewRegistry()

	tests := []struct {
		name      string
		assertion string
		value     any
		want      bool
	}{
		{name: "email_valid", assertion: "email", value: "dev@example.com", want: true},
		{name: "email_invalid", assertion: "email", value: "not-an-email", want: false},
		{name: "email_non_string", assertion: "email", value: 7, want: false},
		{name: "url_valid", assertion: "url", value: "https://example.com/path", want: true},
		{name: "url_no_scheme", assertion: "url", value: "example.com", want: false},
		{name: "uuid_valid", assertion: "uuid", value: "123e4567-e89b-12d3-a456-426614174000", want: true},
		{name: "uuid_invalid", assertion: "uuid", value: "123e4567", want: false},
		{name: "numeric_int", assertion: "numeric", value: 42, want: true},
		{name: "numeric_float", assertion: "numeric", value: 3.14, want: true},
		{name: "numeric_string", assertion: "numeric", value: "12.5", want: true},
		{name: "numeric_word", assertion: "numeric", value: "twelve", want: false},
		{name: "integer_int", assertion: "integer", value: 42, want: true},
		{name: "integer_whole_float", assertion: "integer", value: 42.0, want: true},
		{name: "integer_fractional", assertion: "integer", value: 42.5, want: false},
		{name: "integer_string", assertion: "integer", value: "42", want: true},
		{name: "boolean_true", assertion: "boolean", value: true, want: true},
		{name: "boolean_string", assertion: "boolean", value: "true", want: false},
		{name: "not_empty_string", assertion: "not_empty", value: "x", want: true},
		{name: "not_empty_blank", assertion: "not_empty", value: "   ", want: false},
		{name: "not_empty_nil", assertion: "not_empty", value: nil, want: false},
		{name: "not_empty_absent", assertion: "not_empty", value: tabula.Absent, want: false},
		{name: "not_empty_zero", assertion: "not_empty", value: 0, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fn, ok := reg.Lookup(tt.assertion)
			require.True(t, ok)
			assert.Equal(t, tt.want, fn(tt.value))
		})
	}
}

func TestRegisterOverridesBuiltin(t *testing.T) {
	t.Parallel()

	reg := assertion.NewRegistry()
	reg.Register("email", func(v any) bool {
		s, ok := v.(string)
		return ok && strings.HasSuffix(s, "@corp.example")
	})

	fn, ok := reg.Lookup("email")
	require.True(t, ok)
	assert.True(t, fn("dev@corp.example"))
	assert.False(t, fn("dev@example.com"))

	// Other registries keep the built-in.
	other, ok := assertion.NewRegistry().Lookup("email")
	require.True(t, ok)
	assert.True(t, other("dev@example.com"))
}

func TestTester(t *testing.T) {
	t.Parallel()

	t.Run("named_assertion_pass", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "email", &errs)
		assert.True(t, tester.Test("dev@example.com", "email"))
		assert.Empty(t, errs)
	})

	t.Run("named_assertion_fail", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "email", &errs)
		assert.False(t, tester.Test("nope", "email"))
		require.Len(t, errs, 1)
		assert.Equal(t, "email", errs[0].Field)
		assert.Equal(t, "email failed", errs[0].Message)
	})

	t.Run("unknown_name", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "code", &errs)
		assert.False(t, tester.Test("x", "no_such_assertion"))
		require.Len(t, errs, 1)
		assert.Equal(t, `unknown assertion "no_such_assertion"`, errs[0].Message)
	})

	t.Run("inline_predicate", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "age", &errs)
		positive := func(v any) bool {
			n, ok := v.(int)
			return ok && n > 0
		}
		assert.True(t, tester.Test(7, positive))
		assert.False(t, tester.Test(-7, positive))
		require.Len(t, errs, 1)
		assert.Equal(t, "assertion failed", errs[0].Message)
	})

	t.Run("custom_message", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "email", &errs)
		tester.Test("nope", "email", assertion.WithMessage("must be a company address"))
		require.Len(t, errs, 1)
		assert.Equal(t, "must be a company address", errs[0].Message)
	})

	t.Run("message_rewrite", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "email", &errs)
		tester.Test("nope", "email", assertion.WithMessageFunc(func(msg string) string {
			return "validation: " + msg
		}))
		require.Len(t, errs, 1)
		assert.Equal(t, "validation: email failed", errs[0].Message)
	})

	t.Run("accumulates_across_calls", func(t *testing.T) {
		t.Parallel()
		var errs []tabula.FieldError
		tester := assertion.NewTester(assertion.NewRegistry(), "email", &errs)
		tester.Test("nope", "email")
		tester.Test("", "not_empty")
		assert.Len(t, errs, 2)
	})
}

package tabula_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
)

func TestDefinitionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *tabula.DefinitionError
		want string
	}{
		{
			name: "table_and_column",
			err:  tabula.NewDefinitionError("users", "email", "column cannot be both readonly and required: a required field that can never be written is unsatisfiable"),
			want: "tabula: schema definition: users.email: column cannot be both readonly and required: a required field that can never be written is unsatisfiable",
		},
		{
			name: "table_only",
			err:  tabula.NewDefinitionError("users", "", "no primary key: flag a column or declare an id column"),
			want: "tabula: schema definition: users: no primary key: flag a column or declare an id column",
		},
		{
			name: "message_only",
			err:  tabula.NewDefinitionError("", "", "table declares no columns"),
			want: "tabula: schema definition: table declares no columns",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, tabula.IsDefinitionError(tt.err))
		})
	}
}

func TestIsDefinitionError(t *testing.T) {
	t.Parallel()

	assert.False(t, tabula.IsDefinitionError(nil))
	assert.False(t, tabula.IsDefinitionError(errors.New("plain")))

	wrapped := fmt.Errorf("build: %w", tabula.NewDefinitionError("users", "", "boom"))
	assert.True(t, tabula.IsDefinitionError(wrapped))
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("nil_on_empty", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tabula.NewValidationError(nil))
		assert.NoError(t, tabula.NewValidationError([]tabula.FieldError{}))
	})

	t.Run("lists_every_field", func(t *testing.T) {
		t.Parallel()
		err := tabula.NewValidationError([]tabula.FieldError{
			{Field: "email", Message: "email failed"},
			{Field: "age", Message: "expected an integer value, got string"},
		})
		require.Error(t, err)
		assert.True(t, tabula.IsValidationError(err))
		assert.Contains(t, err.Error(), "email: email failed")
		assert.Contains(t, err.Error(), "age: expected an integer value, got string")
	})

	t.Run("extract_field_errors", func(t *testing.T) {
		t.Parallel()
		fes := []tabula.FieldError{{Field: "name", Message: "missing required field"}}
		err := fmt.Errorf("create users: %w", tabula.NewValidationError(fes))
		assert.Equal(t, fes, tabula.ValidationErrors(err))
		assert.Nil(t, tabula.ValidationErrors(errors.New("plain")))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	err := tabula.NewNotFoundError("users")
	assert.Equal(t, "tabula: users not found", err.Error())
	assert.Equal(t, "users", err.Label())
	assert.Nil(t, err.Key())
	assert.True(t, errors.Is(err, tabula.ErrNotFound))
	assert.True(t, tabula.IsNotFound(err))

	withKey := tabula.NewNotFoundErrorWithKey("users", 42)
	assert.Equal(t, "tabula: users not found (key=42)", withKey.Error())
	assert.Equal(t, 42, withKey.Key())

	assert.False(t, tabula.IsNotFound(nil))
	assert.False(t, tabula.IsNotFound(errors.New("plain")))
	assert.True(t, tabula.IsNotFound(fmt.Errorf("find: %w", tabula.ErrNotFound)))
}

func TestOperationError(t *testing.T) {
	t.Parallel()

	base := tabula.ErrNoFilter
	err := tabula.NewOperationError("users", "destroyAll", base)
	assert.Equal(t, "tabula: destroyAll users: tabula: operation requires at least one filter", err.Error())
	assert.True(t, tabula.IsOperationError(err))
	assert.True(t, errors.Is(err, tabula.ErrNoFilter))
	assert.Equal(t, base, err.Unwrap())
}

func TestAbsent(t *testing.T) {
	t.Parallel()

	assert.True(t, tabula.IsAbsent(tabula.Absent))
	assert.False(t, tabula.IsAbsent(nil))
	assert.False(t, tabula.IsAbsent(""))
	assert.False(t, tabula.IsAbsent(0))
}

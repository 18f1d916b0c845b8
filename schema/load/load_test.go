package load_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schema/load"
	"github.com/syssam/tabula/table"
)

const userSpec = `
tables:
  - name: users
    columns:
      - {name: id, type: uuid, primary_key: true, default: random}
      - {name: email, type: varchar, size: 255, required: true}
      - {name: name, type: string}
      - {name: age, type: int}
      - {name: active, type: bool, default: true}
      - {name: tags, type: array, elem: string}
      - {name: password_hash, type: text, hidden: true}
      - {name: location, raw: "geography(Point,4326)"}
    indexes:
      - {fields: [email], unique: true}
      - {fields: [name, age], name: idx_name_age}
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := load.Parse(strings.NewReader(userSpec))
	require.NoError(t, err)
	require.Len(t, f.Tables, 1)

	spec := f.Tables[0]
	assert.Equal(t, "users", spec.Name)
	assert.Len(t, spec.Columns, 8)
	assert.Len(t, spec.Indexes, 2)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := load.Parse(strings.NewReader("tables:\n  - name: users\n    bogus: true\n"))
	assert.Error(t, err)
}

func TestColumnSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		spec     *load.ColumnSpec
		validate func(t *testing.T, desc *column.Descriptor)
		wantErr  string
	}{
		{
			name: "uuid_primary_key_random",
			spec: &load.ColumnSpec{Name: "id", Type: "uuid", PrimaryKey: true, Default: "random"},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.TypeUUID, desc.Type)
				assert.True(t, desc.PrimaryKey)
				assert.Equal(t, column.DefaultRandom, desc.DefaultKind)
			},
		},
		{
			name: "varchar_with_size",
			spec: &load.ColumnSpec{Name: "email", Type: "varchar", Size: 255, Required: true},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.TypeVarchar, desc.Type)
				assert.Equal(t, 255, desc.Size)
				assert.True(t, desc.Required)
			},
		},
		{
			name: "decimal",
			spec: &load.ColumnSpec{Name: "price", Type: "decimal", Precision: 10, Scale: 2},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.TypeDecimal, desc.Type)
				assert.Equal(t, 10, desc.Precision)
				assert.Equal(t, 2, desc.Scale)
			},
		},
		{
			name: "time_default_now",
			spec: &load.ColumnSpec{Name: "seen_at", Type: "time", Default: "now"},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.DefaultNow, desc.DefaultKind)
			},
		},
		{
			name: "literal_default",
			spec: &load.ColumnSpec{Name: "status", Type: "string", Default: "pending"},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.DefaultLiteral, desc.DefaultKind)
				assert.Equal(t, "pending", desc.Default)
			},
		},
		{
			name: "bool_literal_default",
			spec: &load.ColumnSpec{Name: "active", Type: "bool", Default: true},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.DefaultLiteral, desc.DefaultKind)
				assert.Equal(t, true, desc.Default)
			},
		},
		{
			name: "array_with_elem",
			spec: &load.ColumnSpec{Name: "tags", Type: "array", Elem: "string"},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.Equal(t, column.TypeArray, desc.Type)
				assert.Equal(t, column.TypeString, desc.Elem)
			},
		},
		{
			name: "raw_definition",
			spec: &load.ColumnSpec{Name: "location", Raw: "geography(Point,4326)"},
			validate: func(t *testing.T, desc *column.Descriptor) {
				assert.True(t, desc.Raw)
				assert.Equal(t, "geography(Point,4326)", desc.RawDef)
			},
		},
		{
			name:    "missing_name",
			spec:    &load.ColumnSpec{Type: "string"},
			wantErr: "no name",
		},
		{
			name:    "unknown_type",
			spec:    &load.ColumnSpec{Name: "x", Type: "blob"},
			wantErr: `unknown column type "blob"`,
		},
		{
			name:    "unknown_elem",
			spec:    &load.ColumnSpec{Name: "xs", Type: "array", Elem: "blob"},
			wantErr: `unknown element type "blob"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := tt.spec.Column()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, tabula.IsDefinitionError(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, b.Descriptor())
		})
	}
}

func TestTableSpecBuilder(t *testing.T) {
	t.Parallel()

	f, err := load.Parse(strings.NewReader(userSpec))
	require.NoError(t, err)

	b, err := f.Tables[0].Builder(dialect.Postgres)
	require.NoError(t, err)
	desc, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "users", desc.Name())
	assert.Equal(t, []string{"id"}, desc.PrimaryKey())

	email, ok := desc.Column("email")
	require.True(t, ok)
	assert.True(t, email.Required)

	assert.False(t, desc.Access().IsSelectable("password_hash"))

	sqlTable := desc.SQLTable()
	require.Len(t, sqlTable.Indexes, 2)
	assert.Equal(t, "users_email_unique", sqlTable.Indexes[0].Name)
	assert.Equal(t, "idx_name_age", sqlTable.Indexes[1].Name)

	// The same document drives any backend.
	b2, err := f.Tables[0].Builder(dialect.SQLite)
	require.NoError(t, err)
	desc2, err := b2.Build()
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, desc2.Dialect())
}

func TestTableSpecComposite(t *testing.T) {
	t.Parallel()

	doc := `
tables:
  - name: order_items
    without_timestamps: true
    composite_key: [order_id, product_id]
    columns:
      - {name: order_id, type: uuid}
      - {name: product_id, type: uuid}
      - {name: quantity, type: int, not_null: true}
    readonly: []
`
	f, err := load.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	b, err := f.Tables[0].Builder(dialect.Postgres)
	require.NoError(t, err)
	desc, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "product_id"}, desc.PrimaryKey())
	assert.True(t, desc.HasCompositeKey())
	_, ok := desc.Column(table.CreatedColumn)
	assert.False(t, ok)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(userSpec), 0o644))

	f, err := load.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Tables, 1)

	_, err = load.ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(userSpec), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reloads atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- load.Watch(ctx, path, func(f *load.File) {
			if len(f.Tables) == 1 {
				reloads.Add(1)
			}
		}, nil)
	}()

	// Give the watcher a moment to install before the first write.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(userSpec), 0o644))

	deadline := time.After(3 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never fired")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

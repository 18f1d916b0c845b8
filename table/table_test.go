package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/assertion"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema/access"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/table"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		given string
		want  string
	}{
		{name: "entity_style", given: "User", want: "users"},
		{name: "camel_case", given: "OrderItem", want: "order_items"},
		{name: "already_plural", given: "users", want: "users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			desc, err := table.New(tt.given, dialect.Postgres).
				Columns(column.UUID("id").PrimaryKey()).
				Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, desc.Name())
		})
	}
}

func TestTimestampInjection(t *testing.T) {
	t.Parallel()

	t.Run("injected_by_default", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(column.UUID("id").PrimaryKey()).
			Build()
		require.NoError(t, err)

		created, ok := desc.Column(table.CreatedColumn)
		require.True(t, ok)
		assert.Equal(t, column.TypeTime, created.Type)
		assert.True(t, created.NotNull)
		assert.Equal(t, column.DefaultNow, created.DefaultKind)
		assert.True(t, created.Readonly)

		_, ok = desc.Column(table.UpdatedColumn)
		assert.True(t, ok)
		assert.False(t, desc.Access().IsWritable(table.CreatedColumn))
	})

	t.Run("declared_column_wins", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(
				column.UUID("id").PrimaryKey(),
				column.Time("created_at"),
			).
			Build()
		require.NoError(t, err)
		created, ok := desc.Column(table.CreatedColumn)
		require.True(t, ok)
		assert.False(t, created.Readonly)
	})

	t.Run("opt_out", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(column.UUID("id").PrimaryKey()).
			WithoutTimestamps().
			Build()
		require.NoError(t, err)
		_, ok := desc.Column(table.CreatedColumn)
		assert.False(t, ok)
	})
}

func TestPrimaryKeyResolution(t *testing.T) {
	t.Parallel()

	t.Run("flagged_column", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(column.UUID("user_key").PrimaryKey()).
			Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"user_key"}, desc.PrimaryKey())
		assert.False(t, desc.HasCompositeKey())
	})

	t.Run("conventional_id_fallback", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(column.BigInt("id"), column.String("name")).
			Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, desc.PrimaryKey())
		c, _ := desc.Column("id")
		assert.True(t, c.PrimaryKey)
	})

	t.Run("no_key_fails", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).
			Columns(column.String("name")).
			Build()
		require.Error(t, err)
		assert.True(t, tabula.IsDefinitionError(err))
		assert.Contains(t, err.Error(), "no primary key")
	})

	t.Run("two_flagged_columns_ambiguous", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).
			Columns(
				column.UUID("a").PrimaryKey(),
				column.UUID("b").PrimaryKey(),
			).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ambiguous primary key")
	})

	t.Run("composite_key", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("OrderItem", dialect.Postgres).
			Columns(
				column.UUID("order_id"),
				column.UUID("product_id"),
				column.Int("quantity").NotNull(),
			).
			CompositeKey("order_id", "product_id").
			Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"order_id", "product_id"}, desc.PrimaryKey())
		assert.True(t, desc.HasCompositeKey())

		// Constituents are table-level key members, not per-column keys,
		// and stay writable: every key column comes from the caller.
		c, _ := desc.Column("order_id")
		assert.False(t, c.PrimaryKey)
		assert.True(t, c.NotNull)
		assert.True(t, desc.Access().IsWritable("order_id"))
	})

	t.Run("composite_key_unknown_column", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("OrderItem", dialect.Postgres).
			Columns(column.UUID("order_id")).
			CompositeKey("order_id", "no_such").
			Build()
		require.Error(t, err)
		assert.True(t, tabula.IsDefinitionError(err))
	})
}

func TestKeyWritability(t *testing.T) {
	t.Parallel()

	t.Run("generated_key_not_writable", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("User", dialect.Postgres).
			Columns(column.UUID("id").PrimaryKey().DefaultRandom()).
			Build()
		require.NoError(t, err)
		assert.False(t, desc.Access().IsWritable("id"))
	})

	t.Run("caller_supplied_key_writable", func(t *testing.T) {
		t.Parallel()
		desc, err := table.New("Setting", dialect.Postgres).
			Columns(
				column.String("key").PrimaryKey(),
				column.String("value"),
			).
			Build()
		require.NoError(t, err)
		assert.True(t, desc.Access().IsWritable("key"))
	})
}

func TestBuildFailures(t *testing.T) {
	t.Parallel()

	t.Run("no_columns", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no columns")
	})

	t.Run("duplicate_column", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).
			Columns(
				column.UUID("id").PrimaryKey(),
				column.String("name"),
				column.String("name"),
			).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column name")
	})

	t.Run("readonly_required_contract", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).
			Columns(
				column.UUID("id").PrimaryKey(),
				column.String("code").Required(),
			).
			Access(access.Readonly("code")).
			Build()
		require.Error(t, err)
		assert.True(t, tabula.IsDefinitionError(err))
		assert.Contains(t, err.Error(), "readonly and required")
	})

	t.Run("index_on_unknown_column", func(t *testing.T) {
		t.Parallel()
		_, err := table.New("User", dialect.Postgres).
			Columns(column.UUID("id").PrimaryKey()).
			Indexes(index.Fields("no_such")).
			Build()
		require.Error(t, err)
		assert.True(t, tabula.IsDefinitionError(err))
	})
}

func TestDescriptorSurfaces(t *testing.T) {
	t.Parallel()

	desc, err := table.New("User", dialect.Postgres).
		Columns(
			column.UUID("id").PrimaryKey().DefaultRandom(),
			column.Varchar("email", 255).Required(),
		).
		Indexes(index.Fields("email").Unique()).
		Build()
	require.NoError(t, err)

	sqlTable := desc.SQLTable()
	require.NotNil(t, sqlTable)
	assert.Equal(t, "users", sqlTable.Name)
	require.Len(t, sqlTable.Indexes, 1)
	assert.Equal(t, "users_email_unique", sqlTable.Indexes[0].Name)

	schemas := desc.Schemas()
	require.NotNil(t, schemas)
	assert.Equal(t, []string{"email"}, schemas.Create.Required())
}

func TestUseAssertionsFreeze(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T) *table.Descriptor {
		t.Helper()
		desc, err := table.New("User", dialect.Postgres).
			Columns(
				column.UUID("id").PrimaryKey().DefaultRandom(),
				column.String("email"),
			).
			Build()
		require.NoError(t, err)
		return desc
	}

	t.Run("splice_before_use", func(t *testing.T) {
		t.Parallel()
		desc := build(t)
		reg := assertion.NewRegistry()
		reg.Register("corporate", func(v any) bool { return false })
		require.NoError(t, desc.UseAssertions(reg))
		_, ok := desc.Registry().Lookup("corporate")
		assert.True(t, ok)
	})

	t.Run("splice_after_use_fails", func(t *testing.T) {
		t.Parallel()
		desc := build(t)
		desc.Use()
		err := desc.UseAssertions(assertion.NewRegistry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "before first use")
	})
}

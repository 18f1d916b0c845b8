package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
)

func TestSelectBuilder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		build     func() (string, []any)
		wantQuery string
		wantArgs  []any
	}{
		{
			name: "postgres_placeholders",
			build: func() (string, []any) {
				return sql.Select("id", "email").
					Dialect(dialect.Postgres).
					From("users").
					Where(sql.EQ("email", "dev@example.com")).
					Query()
			},
			wantQuery: `SELECT "id", "email" FROM "users" WHERE "email" = $1`,
			wantArgs:  []any{"dev@example.com"},
		},
		{
			name: "mysql_placeholders_and_quoting",
			build: func() (string, []any) {
				return sql.Select("id").
					Dialect(dialect.MySQL).
					From("users").
					Where(sql.EQ("email", "dev@example.com")).
					Query()
			},
			wantQuery: "SELECT `id` FROM `users` WHERE `email` = ?",
			wantArgs:  []any{"dev@example.com"},
		},
		{
			name: "star_when_no_columns",
			build: func() (string, []any) {
				return sql.Select().Dialect(dialect.SQLite).From("users").Query()
			},
			wantQuery: `SELECT * FROM "users"`,
		},
		{
			name: "multiple_predicates_and_combined",
			build: func() (string, []any) {
				return sql.Select("id").
					Dialect(dialect.Postgres).
					From("users").
					Where(sql.EQ("status", "active")).
					Where(sql.EQ("age", 30)).
					Query()
			},
			wantQuery: `SELECT "id" FROM "users" WHERE "status" = $1 AND "age" = $2`,
			wantArgs:  []any{"active", 30},
		},
		{
			name: "in_predicate",
			build: func() (string, []any) {
				return sql.Select("id").
					Dialect(dialect.Postgres).
					From("users").
					Where(sql.In("id", 1, 2, 3)).
					Query()
			},
			wantQuery: `SELECT "id" FROM "users" WHERE "id" IN ($1, $2, $3)`,
			wantArgs:  []any{1, 2, 3},
		},
		{
			name: "empty_in_never_matches",
			build: func() (string, []any) {
				return sql.Select("id").
					Dialect(dialect.Postgres).
					From("users").
					Where(sql.In("id")).
					Query()
			},
			wantQuery: `SELECT "id" FROM "users" WHERE FALSE`,
		},
		{
			name: "order_and_limit",
			build: func() (string, []any) {
				return sql.Select("id").
					Dialect(dialect.SQLite).
					From("users").
					OrderBy(sql.Desc("created_at"), sql.Asc("id")).
					Limit(10).
					Query()
			},
			wantQuery: `SELECT "id" FROM "users" ORDER BY created_at DESC, id LIMIT 10`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args := tt.build()
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertBuilder(t *testing.T) {
	t.Parallel()

	t.Run("postgres_returning", func(t *testing.T) {
		t.Parallel()
		query, args := sql.Insert("users").
			Dialect(dialect.Postgres).
			Set("id", "u1").
			Set("email", "dev@example.com").
			Returning("id", "email").
			Query()
		assert.Equal(t, `INSERT INTO "users" ("id", "email") VALUES ($1, $2) RETURNING "id", "email"`, query)
		assert.Equal(t, []any{"u1", "dev@example.com"}, args)
	})

	t.Run("mysql_ignores_returning", func(t *testing.T) {
		t.Parallel()
		query, _ := sql.Insert("users").
			Dialect(dialect.MySQL).
			Set("email", "dev@example.com").
			Returning("id").
			Query()
		assert.Equal(t, "INSERT INTO `users` (`email`) VALUES (?)", query)
	})

	t.Run("default_values_when_empty", func(t *testing.T) {
		t.Parallel()
		query, args := sql.Insert("events").Dialect(dialect.Postgres).Query()
		assert.Equal(t, `INSERT INTO "events" DEFAULT VALUES`, query)
		assert.Empty(t, args)
	})
}

func TestUpdateBuilder(t *testing.T) {
	t.Parallel()

	t.Run("postgres_returning", func(t *testing.T) {
		t.Parallel()
		query, args := sql.Update("users").
			Dialect(dialect.Postgres).
			Set("name", "Ada").
			Where(sql.EQ("id", "u1")).
			Returning("id", "name").
			Query()
		assert.Equal(t, `UPDATE "users" SET "name" = $1 WHERE "id" = $2 RETURNING "id", "name"`, query)
		assert.Equal(t, []any{"Ada", "u1"}, args)
	})

	t.Run("mysql_no_returning", func(t *testing.T) {
		t.Parallel()
		query, args := sql.Update("users").
			Dialect(dialect.MySQL).
			Set("name", "Ada").
			Where(sql.EQ("id", "u1")).
			Returning("id").
			Query()
		assert.Equal(t, "UPDATE `users` SET `name` = ? WHERE `id` = ?", query)
		assert.Equal(t, []any{"Ada", "u1"}, args)
	})
}

func TestDeleteBuilder(t *testing.T) {
	t.Parallel()

	query, args := sql.Delete("users").
		Dialect(dialect.Postgres).
		Where(sql.EQ("status", "inactive")).
		Query()
	assert.Equal(t, `DELETE FROM "users" WHERE "status" = $1`, query)
	assert.Equal(t, []any{"inactive"}, args)

	query, args = sql.Delete("users").Dialect(dialect.MySQL).Query()
	assert.Equal(t, "DELETE FROM `users`", query)
	assert.Empty(t, args)
}

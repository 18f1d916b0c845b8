package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema/column"
)

// strategy is the per-backend write execution: backends with a
// returning clause finish create/update in one round trip; the rest
// write, then read back by primary key. One function per capability,
// selected once at repository construction.
type strategy struct {
	create func(ctx context.Context, r *Repository, conn dialect.ExecQuerier, prepared tabula.Row) (tabula.Row, error)
	update func(ctx context.Context, r *Repository, conn dialect.ExecQuerier, key []sql.Predicate, prepared tabula.Row) (tabula.Row, error)
}

func strategyFor(d string) strategy {
	if dialect.SupportsReturning(d) {
		return strategy{create: createReturning, update: updateReturning}
	}
	return strategy{create: createReadBack, update: updateReadBack}
}

// resolveKey applies the create key-resolution order: a value already
// present in the prepared input wins; otherwise a client-generated
// identifier when the key default is the random tag, generated before
// the write so it is known for any follow-up read. Composite keys
// disable the generated path: every key column must come from the
// caller. The returned bool reports whether the key is known before
// the write.
func resolveKey(r *Repository, prepared tabula.Row) (bool, error) {
	pk := r.desc.PrimaryKey()
	if r.desc.HasCompositeKey() {
		for _, name := range pk {
			if v, ok := prepared[name]; !ok || v == nil {
				return false, tabula.NewOperationError(r.desc.Name(), "create",
					fmt.Errorf("composite key column %q must be supplied", name))
			}
		}
		return true, nil
	}
	if v, ok := prepared[pk[0]]; ok && v != nil {
		return true, nil
	}
	c, _ := r.desc.Column(pk[0])
	if c != nil && c.DefaultKind == column.DefaultRandom {
		prepared[pk[0]] = uuid.NewString()
		return true, nil
	}
	return false, nil
}

func insertBuilder(r *Repository, prepared tabula.Row) *sql.InsertBuilder {
	b := sql.Insert(r.desc.Name()).Dialect(r.desc.Dialect())
	for _, c := range r.desc.Columns() {
		if v, ok := prepared[c.Name]; ok {
			b.Set(c.Name, v)
		}
	}
	return b
}

// createReturning inserts and returns the stored row in one round trip.
func createReturning(ctx context.Context, r *Repository, conn dialect.ExecQuerier, prepared tabula.Row) (tabula.Row, error) {
	if _, err := resolveKey(r, prepared); err != nil {
		return nil, err
	}
	query, args := insertBuilder(r, prepared).
		Returning(r.desc.Access().Selectable...).
		Query()
	rows, err := r.queryRows(ctx, conn, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewOperationError(r.desc.Name(), "create", tabula.ErrReadBack)
	}
	return rows[0], nil
}

// createReadBack inserts, resolves the primary key (prepared value,
// client-generated identifier, or the backend-reported one, in that
// order), then issues the mandatory follow-up read.
func createReadBack(ctx context.Context, r *Repository, conn dialect.ExecQuerier, prepared tabula.Row) (tabula.Row, error) {
	known, err := resolveKey(r, prepared)
	if err != nil {
		return nil, err
	}
	query, args := insertBuilder(r, prepared).Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	pk := r.desc.PrimaryKey()
	var preds []sql.Predicate
	switch {
	case r.desc.HasCompositeKey():
		// Generated identifiers are disabled for composite keys; the
		// read-back is always the full-predicate lookup.
		for _, name := range pk {
			preds = append(preds, sql.EQ(name, prepared[name]))
		}
	case known:
		preds = []sql.Predicate{sql.EQ(pk[0], prepared[pk[0]])}
	default:
		id, err := res.LastInsertId()
		if err != nil {
			return nil, tabula.NewOperationError(r.desc.Name(), "create",
				fmt.Errorf("backend reported no generated identifier: %w", err))
		}
		preds = []sql.Predicate{sql.EQ(pk[0], id)}
	}
	rows, err := r.selectRows(ctx, conn, preds, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewOperationError(r.desc.Name(), "create", tabula.ErrReadBack)
	}
	return rows[0], nil
}

func updateBuilder(r *Repository, key []sql.Predicate, prepared tabula.Row) *sql.UpdateBuilder {
	b := sql.Update(r.desc.Name()).Dialect(r.desc.Dialect())
	for _, c := range r.desc.Columns() {
		if v, ok := prepared[c.Name]; ok {
			b.Set(c.Name, v)
		}
	}
	for _, p := range key {
		b.Where(p)
	}
	return b
}

// updateReturning updates and returns the stored row in one round trip.
func updateReturning(ctx context.Context, r *Repository, conn dialect.ExecQuerier, key []sql.Predicate, prepared tabula.Row) (tabula.Row, error) {
	query, args := updateBuilder(r, key, prepared).
		Returning(r.desc.Access().Selectable...).
		Query()
	rows, err := r.queryRows(ctx, conn, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewNotFoundError(r.desc.Name())
	}
	return rows[0], nil
}

// updateReadBack always writes, then reads back by the key predicates.
// Row existence is judged by the read-back, not the write's affected
// count: the backend on this path reports changed rows rather than
// matched rows, so an update that leaves every value identical affects
// zero rows even though the row exists.
func updateReadBack(ctx context.Context, r *Repository, conn dialect.ExecQuerier, key []sql.Predicate, prepared tabula.Row) (tabula.Row, error) {
	query, args := updateBuilder(r, key, prepared).Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	rows, err := r.selectRows(ctx, conn, key, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil, tabula.NewOperationError(r.desc.Name(), "update", tabula.ErrReadBack)
		}
		return nil, tabula.NewNotFoundError(r.desc.Name())
	}
	return rows[0], nil
}

// Package repo turns a table descriptor and an optional set of
// custom-operation factories into a live, callable CRUD repository.
//
// Custom factories receive a Context exposing the connection, the
// descriptor, the prep pipeline and the original default operations —
// never the overridden ones — and return the callable exposed under
// that name. Custom names win over identically-named defaults on the
// final surface; the Context's defaults never change. Per-call options
// reach an override as trailing arguments; Options recovers them for
// delegation.
package repo

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/prep"
	"github.com/syssam/tabula/schema/column"
	"github.com/syssam/tabula/schemaset"
	"github.com/syssam/tabula/table"
)

// CallOption is a per-call repository option.
type CallOption func(*callOptions)

type callOptions struct {
	tx    dialect.Tx
	force bool
}

// WithTx threads an explicit transaction handle through the call. There
// is no ambient transaction context.
func WithTx(tx dialect.Tx) CallOption {
	return func(o *callOptions) { o.tx = tx }
}

// Force bypasses the prep pipeline for the call. Explicit and
// auditable.
func Force() CallOption {
	return func(o *callOptions) { o.force = true }
}

func apply(opts []CallOption) *callOptions {
	o := &callOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// forward appends the per-call options to a custom operation's
// arguments, so an override observes WithTx and Force the same way the
// default it replaces would.
func forward(args []any, opts []CallOption) []any {
	for _, opt := range opts {
		args = append(args, opt)
	}
	return args
}

// Options extracts the per-call options forwarded among a custom
// operation's arguments. An override delegating to a default passes
// them through: cx.Defaults.Find(ctx, filter, repo.Options(args...)...).
func Options(args ...any) []CallOption {
	var opts []CallOption
	for _, a := range args {
		if opt, ok := a.(CallOption); ok {
			opts = append(opts, opt)
		}
	}
	return opts
}

// OpFunc is the generic shape of a repository operation.
type OpFunc func(ctx context.Context, args ...any) (any, error)

// Factory builds a custom operation from the repository context.
type Factory func(cx *Context) OpFunc

// Custom maps operation names to factories.
type Custom map[string]Factory

// Defaults exposes the original default operations. The struct handed
// to custom factories never reflects overrides.
type Defaults struct {
	Find       func(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error)
	FindAll    func(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error)
	FindOne    func(ctx context.Context, filter tabula.Row, opts ...CallOption) (tabula.Row, error)
	FindByID   func(ctx context.Context, key any, opts ...CallOption) (tabula.Row, error)
	FindByIDIn func(ctx context.Context, keys []any, opts ...CallOption) ([]tabula.Row, error)
	Create     func(ctx context.Context, input tabula.Row, opts ...CallOption) (tabula.Row, error)
	Update     func(ctx context.Context, key any, changes tabula.Row, opts ...CallOption) (tabula.Row, error)
	Destroy    func(ctx context.Context, key any, opts ...CallOption) error
	DestroyAll func(ctx context.Context, filter tabula.Row, opts ...CallOption) (int64, error)
	Ref        func(ctx context.Context, filter tabula.Row, opts ...CallOption) (any, error)
}

// Context is handed to every custom-operation factory.
type Context struct {
	Driver   dialect.Driver
	Table    *table.Descriptor
	Defaults *Defaults
	Prep     *prep.Pipeline
}

// Repository is the live CRUD surface for one table over one
// connection. It is stateless beyond the closures it captures and safe
// for unbounded concurrent use.
type Repository struct {
	drv      dialect.Driver
	desc     *table.Descriptor
	pipeline *prep.Pipeline
	strategy strategy
	defaults *Defaults
	custom   map[string]OpFunc
}

// New builds a repository for the descriptor over the driver. Building
// marks the descriptor as in use, freezing its assertion splice.
func New(drv dialect.Driver, desc *table.Descriptor, custom Custom) (*Repository, error) {
	if drv.Dialect() != desc.Dialect() {
		return nil, tabula.NewDefinitionError(desc.Name(), "",
			fmt.Sprintf("driver dialect %q does not match table dialect %q", drv.Dialect(), desc.Dialect()))
	}
	desc.Use()
	r := &Repository{
		drv:      drv,
		desc:     desc,
		pipeline: prep.New(desc.Columns(), desc.Access(), desc.Registry()),
		strategy: strategyFor(desc.Dialect()),
		custom:   make(map[string]OpFunc, len(custom)),
	}
	r.defaults = &Defaults{
		Find:       r.find,
		FindAll:    r.findAll,
		FindOne:    r.findOne,
		FindByID:   r.findByID,
		FindByIDIn: r.findByIDIn,
		Create:     r.create,
		Update:     r.update,
		Destroy:    r.destroy,
		DestroyAll: r.destroyAll,
		Ref:        r.ref,
	}
	cx := &Context{Driver: drv, Table: desc, Defaults: r.defaults, Prep: r.pipeline}
	for name, factory := range custom {
		r.custom[name] = factory(cx)
	}
	return r, nil
}

// Driver returns the driver the repository executes on.
func (r *Repository) Driver() dialect.Driver {
	return r.drv
}

// Schemas returns the descriptor's generated schema set.
func (r *Repository) Schemas() *schemaset.Set {
	return r.desc.Schemas()
}

// Prep exposes the repository's prep pipeline.
func (r *Repository) Prep() *prep.Pipeline {
	return r.pipeline
}

// Op returns the custom operation registered under name.
func (r *Repository) Op(name string) (OpFunc, bool) {
	op, ok := r.custom[name]
	return op, ok
}

// Call invokes a custom operation by name.
func (r *Repository) Call(ctx context.Context, name string, args ...any) (any, error) {
	op, ok := r.custom[name]
	if !ok {
		return nil, tabula.NewOperationError(r.desc.Name(), name, fmt.Errorf("unknown operation"))
	}
	return op(ctx, args...)
}

// Find returns the rows matching a non-empty filter. An empty filter is
// an operational error; use FindAll for all rows.
func (r *Repository) Find(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error) {
	if op, ok := r.custom["find"]; ok {
		return r.callRows("find", op, ctx, forward([]any{filter}, opts)...)
	}
	return r.find(ctx, filter, opts...)
}

// FindAll returns the rows matching the filter; an empty filter matches
// every row.
func (r *Repository) FindAll(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error) {
	if op, ok := r.custom["findAll"]; ok {
		return r.callRows("findAll", op, ctx, forward([]any{filter}, opts)...)
	}
	return r.findAll(ctx, filter, opts...)
}

// FindOne returns the first row matching the filter.
func (r *Repository) FindOne(ctx context.Context, filter tabula.Row, opts ...CallOption) (tabula.Row, error) {
	if op, ok := r.custom["findOne"]; ok {
		return r.callRow("findOne", op, ctx, forward([]any{filter}, opts)...)
	}
	return r.findOne(ctx, filter, opts...)
}

// FindByID returns the row with the given primary-key value. Not
// supported for composite keys; use FindOne with the full predicate.
func (r *Repository) FindByID(ctx context.Context, key any, opts ...CallOption) (tabula.Row, error) {
	if op, ok := r.custom["findById"]; ok {
		return r.callRow("findById", op, ctx, forward([]any{key}, opts)...)
	}
	return r.findByID(ctx, key, opts...)
}

// FindByIDIn returns the rows whose primary-key value is in keys.
func (r *Repository) FindByIDIn(ctx context.Context, keys []any, opts ...CallOption) ([]tabula.Row, error) {
	if op, ok := r.custom["findByIdIn"]; ok {
		return r.callRows("findByIdIn", op, ctx, forward([]any{keys}, opts)...)
	}
	return r.findByIDIn(ctx, keys, opts...)
}

// Create prepares the input and inserts one row, returning the stored
// row.
func (r *Repository) Create(ctx context.Context, input tabula.Row, opts ...CallOption) (tabula.Row, error) {
	if op, ok := r.custom["create"]; ok {
		return r.callRow("create", op, ctx, forward([]any{input}, opts)...)
	}
	return r.create(ctx, input, opts...)
}

// Update prepares the changes and updates the row with the given
// primary-key value, returning the stored row. Composite keys take a
// Row holding every key column.
func (r *Repository) Update(ctx context.Context, key any, changes tabula.Row, opts ...CallOption) (tabula.Row, error) {
	if op, ok := r.custom["update"]; ok {
		return r.callRow("update", op, ctx, forward([]any{key, changes}, opts)...)
	}
	return r.update(ctx, key, changes, opts...)
}

// Destroy deletes the row with the given primary-key value.
func (r *Repository) Destroy(ctx context.Context, key any, opts ...CallOption) error {
	if op, ok := r.custom["destroy"]; ok {
		_, err := op(ctx, forward([]any{key}, opts)...)
		return err
	}
	return r.destroy(ctx, key, opts...)
}

// DestroyAll deletes the rows matching a non-empty filter and returns
// the number of deleted rows.
func (r *Repository) DestroyAll(ctx context.Context, filter tabula.Row, opts ...CallOption) (int64, error) {
	if op, ok := r.custom["destroyAll"]; ok {
		v, err := op(ctx, forward([]any{filter}, opts)...)
		if err != nil {
			return 0, err
		}
		if v == nil {
			return 0, nil
		}
		n, ok := v.(int64)
		if !ok {
			return 0, tabula.NewOperationError(r.desc.Name(), "destroyAll",
				fmt.Errorf("operation returned %T, want int64", v))
		}
		return n, nil
	}
	return r.destroyAll(ctx, filter, opts...)
}

// Ref resolves a filter to the matching row's primary-key value, or a
// Row of key columns for composite keys. It is the mechanism by which
// one entity's create call can embed a not-yet-resolved foreign
// reference.
func (r *Repository) Ref(ctx context.Context, filter tabula.Row, opts ...CallOption) (any, error) {
	if op, ok := r.custom["ref"]; ok {
		return op(ctx, forward([]any{filter}, opts)...)
	}
	return r.ref(ctx, filter, opts...)
}

// callRow invokes a custom operation expected to yield a single row. A
// mis-typed result is an operational error, never a silent nil.
func (r *Repository) callRow(name string, op OpFunc, ctx context.Context, args ...any) (tabula.Row, error) {
	v, err := op(ctx, args...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	row, ok := v.(tabula.Row)
	if !ok {
		return nil, tabula.NewOperationError(r.desc.Name(), name,
			fmt.Errorf("operation returned %T, want tabula.Row", v))
	}
	return row, nil
}

func (r *Repository) callRows(name string, op OpFunc, ctx context.Context, args ...any) ([]tabula.Row, error) {
	v, err := op(ctx, args...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	rows, ok := v.([]tabula.Row)
	if !ok {
		return nil, tabula.NewOperationError(r.desc.Name(), name,
			fmt.Errorf("operation returned %T, want []tabula.Row", v))
	}
	return rows, nil
}

// conn returns the per-call execution target: the explicit transaction
// when one was threaded through, the driver otherwise.
func (r *Repository) conn(o *callOptions) dialect.ExecQuerier {
	if o.tx != nil {
		return o.tx
	}
	return r.drv
}

// filterPredicates converts a filter map to predicates. Slice values
// become IN predicates; every key must name a declared column.
func (r *Repository) filterPredicates(op string, filter tabula.Row) ([]sql.Predicate, error) {
	preds := make([]sql.Predicate, 0, len(filter))
	for _, c := range r.desc.Columns() {
		v, ok := filter[c.Name]
		if !ok {
			continue
		}
		rv := reflect.ValueOf(v)
		if v != nil && rv.Kind() == reflect.Slice {
			vs := make([]any, rv.Len())
			for i := range vs {
				vs[i] = rv.Index(i).Interface()
			}
			preds = append(preds, sql.In(c.Name, vs...))
		} else {
			preds = append(preds, sql.EQ(c.Name, v))
		}
	}
	if len(preds) != len(filter) {
		for k := range filter {
			if _, ok := r.desc.Column(k); !ok {
				return nil, tabula.NewOperationError(r.desc.Name(), op,
					fmt.Errorf("unknown column %q in filter", k))
			}
		}
	}
	return preds, nil
}

// keyPredicates converts a primary-key value to predicates. Composite
// keys take a Row holding every key column.
func (r *Repository) keyPredicates(op string, key any) ([]sql.Predicate, error) {
	pk := r.desc.PrimaryKey()
	if !r.desc.HasCompositeKey() {
		return []sql.Predicate{sql.EQ(pk[0], key)}, nil
	}
	kr, ok := key.(tabula.Row)
	if !ok {
		return nil, tabula.NewOperationError(r.desc.Name(), op,
			fmt.Errorf("composite key requires a Row with columns %v", pk))
	}
	preds := make([]sql.Predicate, 0, len(pk))
	for _, name := range pk {
		v, ok := kr[name]
		if !ok {
			return nil, tabula.NewOperationError(r.desc.Name(), op,
				fmt.Errorf("composite key missing column %q", name))
		}
		preds = append(preds, sql.EQ(name, v))
	}
	return preds, nil
}

func (r *Repository) queryRows(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) ([]tabula.Row, error) {
	var rows sql.Rows
	if err := conn.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	return sql.ScanRows(&rows)
}

func (r *Repository) selectRows(ctx context.Context, conn dialect.ExecQuerier, preds []sql.Predicate, limit int) ([]tabula.Row, error) {
	b := sql.Select(r.desc.Access().Selectable...).
		Dialect(r.desc.Dialect()).
		From(r.desc.Name()).
		Limit(limit)
	for _, p := range preds {
		b.Where(p)
	}
	query, args := b.Query()
	return r.queryRows(ctx, conn, query, args)
}

func (r *Repository) find(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error) {
	if len(filter) == 0 {
		return nil, tabula.NewOperationError(r.desc.Name(), "find", tabula.ErrNoFilter)
	}
	return r.findAll(ctx, filter, opts...)
}

func (r *Repository) findAll(ctx context.Context, filter tabula.Row, opts ...CallOption) ([]tabula.Row, error) {
	o := apply(opts)
	preds, err := r.filterPredicates("find", filter)
	if err != nil {
		return nil, err
	}
	return r.selectRows(ctx, r.conn(o), preds, -1)
}

func (r *Repository) findOne(ctx context.Context, filter tabula.Row, opts ...CallOption) (tabula.Row, error) {
	o := apply(opts)
	preds, err := r.filterPredicates("findOne", filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.selectRows(ctx, r.conn(o), preds, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewNotFoundError(r.desc.Name())
	}
	return rows[0], nil
}

func (r *Repository) findByID(ctx context.Context, key any, opts ...CallOption) (tabula.Row, error) {
	if r.desc.HasCompositeKey() {
		return nil, tabula.NewOperationError(r.desc.Name(), "findById", tabula.ErrCompositeKey)
	}
	o := apply(opts)
	pk := r.desc.PrimaryKey()[0]
	rows, err := r.selectRows(ctx, r.conn(o), []sql.Predicate{sql.EQ(pk, key)}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewNotFoundErrorWithKey(r.desc.Name(), key)
	}
	return rows[0], nil
}

func (r *Repository) findByIDIn(ctx context.Context, keys []any, opts ...CallOption) ([]tabula.Row, error) {
	if r.desc.HasCompositeKey() {
		return nil, tabula.NewOperationError(r.desc.Name(), "findByIdIn", tabula.ErrCompositeKey)
	}
	o := apply(opts)
	pk := r.desc.PrimaryKey()[0]
	return r.selectRows(ctx, r.conn(o), []sql.Predicate{sql.In(pk, keys...)}, -1)
}

func (r *Repository) create(ctx context.Context, input tabula.Row, opts ...CallOption) (tabula.Row, error) {
	o := apply(opts)
	prepared, err := r.pipeline.Run(ctx, input, prep.Options{
		Force:            o.force,
		OnlyWritable:     true,
		ValidateRequired: true,
	})
	if err != nil {
		return nil, err
	}
	return r.strategy.create(ctx, r, r.conn(o), prepared)
}

func (r *Repository) update(ctx context.Context, key any, changes tabula.Row, opts ...CallOption) (tabula.Row, error) {
	o := apply(opts)
	prepared, err := r.pipeline.Run(ctx, changes, prep.Options{
		Force:        o.force,
		OnlyWritable: true,
	})
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, tabula.NewOperationError(r.desc.Name(), "update", fmt.Errorf("no writable changes"))
	}
	if !o.force {
		if c, ok := r.desc.Column(table.UpdatedColumn); ok && c.DefaultKind == column.DefaultNow {
			prepared[table.UpdatedColumn] = time.Now().UTC()
		}
	}
	preds, err := r.keyPredicates("update", key)
	if err != nil {
		return nil, err
	}
	return r.strategy.update(ctx, r, r.conn(o), preds, prepared)
}

func (r *Repository) destroy(ctx context.Context, key any, opts ...CallOption) error {
	o := apply(opts)
	preds, err := r.keyPredicates("destroy", key)
	if err != nil {
		return err
	}
	n, err := r.deleteWhere(ctx, r.conn(o), preds)
	if err != nil {
		return err
	}
	if n == 0 {
		return tabula.NewNotFoundErrorWithKey(r.desc.Name(), key)
	}
	return nil
}

func (r *Repository) destroyAll(ctx context.Context, filter tabula.Row, opts ...CallOption) (int64, error) {
	if len(filter) == 0 {
		return 0, tabula.NewOperationError(r.desc.Name(), "destroyAll", tabula.ErrNoFilter)
	}
	o := apply(opts)
	preds, err := r.filterPredicates("destroyAll", filter)
	if err != nil {
		return 0, err
	}
	return r.deleteWhere(ctx, r.conn(o), preds)
}

func (r *Repository) deleteWhere(ctx context.Context, conn dialect.ExecQuerier, preds []sql.Predicate) (int64, error) {
	b := sql.Delete(r.desc.Name()).Dialect(r.desc.Dialect())
	for _, p := range preds {
		b.Where(p)
	}
	query, args := b.Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) ref(ctx context.Context, filter tabula.Row, opts ...CallOption) (any, error) {
	o := apply(opts)
	preds, err := r.filterPredicates("ref", filter)
	if err != nil {
		return nil, err
	}
	pk := r.desc.PrimaryKey()
	b := sql.Select(pk...).
		Dialect(r.desc.Dialect()).
		From(r.desc.Name()).
		Limit(1)
	for _, p := range preds {
		b.Where(p)
	}
	query, args := b.Query()
	rows, err := r.queryRows(ctx, r.conn(o), query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tabula.NewNotFoundError(r.desc.Name())
	}
	if r.desc.HasCompositeKey() {
		key := make(tabula.Row, len(pk))
		for _, name := range pk {
			key[name] = rows[0][name]
		}
		return key, nil
	}
	return rows[0][pk[0]], nil
}

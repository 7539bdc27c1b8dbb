package query

import (
	"fmt"
	"sync/atomic"

	"github.com/kishultan/go-strata/core/schema"
)

// QueryContext is the mutable aggregate for one in-progress query: at most
// one clause object per axis, plus pagination, the entity the query reads,
// and the dialect the pipeline resolved. A context is normally built and
// rendered by a single goroutine, but every clause slot is a compare-and-swap
// slot and the join list is read-copy-append, so sharing one live context
// across goroutines is safe — though independent queries built concurrently
// on a shared context carry no cross-query ordering guarantee.
type QueryContext struct {
	entity any

	selectC atomic.Pointer[SelectClause]
	fromC   atomic.Pointer[FromClause]
	joins   atomic.Pointer[[]JoinClause]
	whereC  atomic.Pointer[WhereClause]
	groupC  atomic.Pointer[GroupByClause]
	havingC atomic.Pointer[HavingClause]
	orderC  atomic.Pointer[OrderByClause]
	pageC   atomic.Pointer[PageClause]

	aliases atomic.Pointer[schema.AliasRegistry]
	dialect atomic.Pointer[dialectHolder]
}

type dialectHolder struct {
	d Dialect
}

// New creates a query context for the given entity. The entity may be a
// struct value, a pointer to one, or a reflect.Type.
func New(entity any) *QueryContext {
	qc := &QueryContext{entity: entity}
	qc.aliases.Store(schema.NewAliasRegistry())
	return qc
}

// Entity returns the primary entity reference of the query.
func (qc *QueryContext) Entity() any {
	return qc.entity
}

// Aliases returns the alias registry scoped to this context.
func (qc *QueryContext) Aliases() *schema.AliasRegistry {
	return qc.aliases.Load()
}

// WithDialect records the dialect resolved for this context's pipeline.
func (qc *QueryContext) WithDialect(d Dialect) *QueryContext {
	qc.dialect.Store(&dialectHolder{d: d})
	return qc
}

// Dialect returns the dialect recorded on the context, or nil when the
// pipeline has not resolved one yet.
func (qc *QueryContext) Dialect() Dialect {
	if h := qc.dialect.Load(); h != nil {
		return h.d
	}
	return nil
}

// reset discards every clause on the context and installs a fresh alias
// registry, starting a new query.
func (qc *QueryContext) reset() {
	qc.selectC.Store(nil)
	qc.fromC.Store(nil)
	qc.joins.Store(nil)
	qc.whereC.Store(nil)
	qc.groupC.Store(nil)
	qc.havingC.Store(nil)
	qc.orderC.Store(nil)
	qc.pageC.Store(nil)
	qc.aliases.Store(schema.NewAliasRegistry())
}

// Select is the root entry point of a query. Invoking it discards every
// other clause on the context and starts a fresh query projecting the given
// columns; with no columns the projection stays implicit (wildcard, or the
// expanded column list under joins).
func (qc *QueryContext) Select(columns ...string) *QueryContext {
	qc.reset()
	items := make([]SelectItem, 0, len(columns))
	for _, c := range columns {
		items = append(items, Col(c))
	}
	qc.selectC.Store(&SelectClause{Items: items})
	return qc
}

// SelectItems is the root entry point for expression projections
// (aggregates, window functions, case expressions). Like Select, it resets
// the context.
func (qc *QueryContext) SelectItems(items ...SelectItem) *QueryContext {
	qc.reset()
	qc.selectC.Store(&SelectClause{Items: items})
	return qc
}

// Distinct marks the projection as DISTINCT.
func (qc *QueryContext) Distinct() *QueryContext {
	for {
		old := qc.selectC.Load()
		var next SelectClause
		if old != nil {
			next = *old
		}
		next.Distinct = true
		if qc.selectC.CompareAndSwap(old, &next) {
			return qc
		}
	}
}

// From overrides the physical source table of the query.
func (qc *QueryContext) From(table string) *QueryContext {
	qc.fromC.Store(&FromClause{Table: table})
	return qc
}

// FromSubquery sets an inline subquery as the source, under the given alias.
func (qc *QueryContext) FromSubquery(sub *QueryContext, alias string) *QueryContext {
	qc.fromC.Store(&FromClause{Subquery: sub, Alias: alias})
	return qc
}

// Where replaces the WHERE predicate tree of the context.
func (qc *QueryContext) Where(p Predicate) *QueryContext {
	qc.whereC.Store(&WhereClause{Pred: p})
	return qc
}

// AndWhere conjoins a predicate with the existing WHERE tree, installing it
// outright when none exists.
func (qc *QueryContext) AndWhere(p Predicate) *QueryContext {
	for {
		old := qc.whereC.Load()
		next := &WhereClause{Pred: p}
		if old != nil && !old.Pred.IsZero() {
			next.Pred = And(old.Pred, p)
		}
		if qc.whereC.CompareAndSwap(old, next) {
			return qc
		}
	}
}

// join appends one entry to the ordered join list using read-copy-append
// with CAS retry on contention.
func (qc *QueryContext) join(jc JoinClause) *QueryContext {
	for {
		old := qc.joins.Load()
		var next []JoinClause
		if old != nil {
			next = append(append([]JoinClause{}, *old...), jc)
		} else {
			next = []JoinClause{jc}
		}
		if qc.joins.CompareAndSwap(old, &next) {
			return qc
		}
	}
}

// Join appends a join against another entity with an explicit join type.
func (qc *QueryContext) Join(t JoinType, entity any, on Predicate) *QueryContext {
	return qc.join(JoinClause{Type: t, Entity: entity, On: on})
}

// JoinAs appends a join under an explicit table alias.
func (qc *QueryContext) JoinAs(t JoinType, entity any, alias string, on Predicate) *QueryContext {
	return qc.join(JoinClause{Type: t, Entity: entity, Alias: alias, On: on})
}

// InnerJoin appends an inner join against another entity.
func (qc *QueryContext) InnerJoin(entity any, on Predicate) *QueryContext {
	return qc.Join(JoinInner, entity, on)
}

// LeftJoin appends a left join against another entity.
func (qc *QueryContext) LeftJoin(entity any, on Predicate) *QueryContext {
	return qc.Join(JoinLeft, entity, on)
}

// RightJoin appends a right join against another entity.
func (qc *QueryContext) RightJoin(entity any, on Predicate) *QueryContext {
	return qc.Join(JoinRight, entity, on)
}

// GroupBy replaces the grouping columns.
func (qc *QueryContext) GroupBy(columns ...string) *QueryContext {
	qc.groupC.Store(&GroupByClause{Columns: columns})
	return qc
}

// Having replaces the HAVING predicate tree.
func (qc *QueryContext) Having(p Predicate) *QueryContext {
	qc.havingC.Store(&HavingClause{Pred: p})
	return qc
}

// OrderBy appends one sort item.
func (qc *QueryContext) OrderBy(column string, dir Direction) *QueryContext {
	for {
		old := qc.orderC.Load()
		var next OrderByClause
		if old != nil {
			next.Items = append(next.Items, old.Items...)
		}
		next.Items = append(next.Items, OrderItem{Column: column, Direction: dir})
		if qc.orderC.CompareAndSwap(old, &next) {
			return qc
		}
	}
}

// OrderByAsc appends an ascending sort item.
func (qc *QueryContext) OrderByAsc(column string) *QueryContext {
	return qc.OrderBy(column, DirectionAsc)
}

// OrderByDesc appends a descending sort item.
func (qc *QueryContext) OrderByDesc(column string) *QueryContext {
	return qc.OrderBy(column, DirectionDesc)
}

// Page sets offset/limit pagination.
func (qc *QueryContext) Page(offset, limit int) *QueryContext {
	qc.pageC.Store(&PageClause{Offset: offset, Limit: limit})
	return qc
}

// Limit sets the row limit, preserving any existing offset.
func (qc *QueryContext) Limit(limit int) *QueryContext {
	for {
		old := qc.pageC.Load()
		next := &PageClause{Limit: limit}
		if old != nil {
			next.Offset = old.Offset
		}
		if qc.pageC.CompareAndSwap(old, next) {
			return qc
		}
	}
}

// Offset sets the starting offset, preserving any existing limit.
func (qc *QueryContext) Offset(offset int) *QueryContext {
	for {
		old := qc.pageC.Load()
		next := &PageClause{Offset: offset, Limit: -1}
		if old != nil {
			next.Limit = old.Limit
		}
		if qc.pageC.CompareAndSwap(old, next) {
			return qc
		}
	}
}

// Selection returns the SELECT clause, creating the implicit default when
// the caller never invoked Select. Creation is race-safe and convergent: all
// racing goroutines observe the same winning instance.
func (qc *QueryContext) Selection() *SelectClause {
	for {
		if c := qc.selectC.Load(); c != nil {
			return c
		}
		fresh := &SelectClause{}
		if qc.selectC.CompareAndSwap(nil, fresh) {
			return fresh
		}
	}
}

// Source returns the FROM clause, or nil when the source is derived from the
// entity's table.
func (qc *QueryContext) Source() *FromClause {
	return qc.fromC.Load()
}

// JoinClauses returns a snapshot of the ordered join list.
func (qc *QueryContext) JoinClauses() []JoinClause {
	if js := qc.joins.Load(); js != nil {
		return *js
	}
	return nil
}

// WherePredicate returns the WHERE predicate tree, if one is set.
func (qc *QueryContext) WherePredicate() (Predicate, bool) {
	if c := qc.whereC.Load(); c != nil && !c.Pred.IsZero() {
		return c.Pred, true
	}
	return Predicate{}, false
}

// Grouping returns the GROUP BY columns.
func (qc *QueryContext) Grouping() []string {
	if c := qc.groupC.Load(); c != nil {
		return c.Columns
	}
	return nil
}

// HavingPredicate returns the HAVING predicate tree, if one is set.
func (qc *QueryContext) HavingPredicate() (Predicate, bool) {
	if c := qc.havingC.Load(); c != nil && !c.Pred.IsZero() {
		return c.Pred, true
	}
	return Predicate{}, false
}

// Ordering returns the ORDER BY items.
func (qc *QueryContext) Ordering() []OrderItem {
	if c := qc.orderC.Load(); c != nil {
		return c.Items
	}
	return nil
}

// Pagination returns the page clause, or nil when the query is unpaginated.
func (qc *QueryContext) Pagination() *PageClause {
	return qc.pageC.Load()
}

// Clone creates an independent context carrying snapshots of every clause.
// The clone shares clause values (which are treated as immutable once
// stored) but not slots, so mutating the clone never affects the original.
func (qc *QueryContext) Clone() *QueryContext {
	out := New(qc.entity)
	out.selectC.Store(qc.selectC.Load())
	out.fromC.Store(qc.fromC.Load())
	out.joins.Store(qc.joins.Load())
	out.whereC.Store(qc.whereC.Load())
	out.groupC.Store(qc.groupC.Load())
	out.havingC.Store(qc.havingC.Load())
	out.orderC.Store(qc.orderC.Load())
	out.pageC.Store(qc.pageC.Load())
	out.aliases.Store(qc.aliases.Load())
	if d := qc.Dialect(); d != nil {
		out.WithDialect(d)
	}
	return out
}

// Validate checks the built context for structural mistakes that would only
// surface as confusing backend errors later.
func (qc *QueryContext) Validate() []error {
	var errs []error
	if p := qc.pageC.Load(); p != nil {
		if p.Offset < 0 {
			errs = append(errs, fmt.Errorf("pagination: offset cannot be negative"))
		}
		if p.Limit == 0 {
			errs = append(errs, fmt.Errorf("pagination: limit must be positive or unbounded"))
		}
	}
	for i, j := range qc.JoinClauses() {
		if j.Entity == nil && j.Table == "" {
			errs = append(errs, fmt.Errorf("joins[%d]: join target cannot be empty", i))
		}
		if j.On.IsZero() {
			errs = append(errs, fmt.Errorf("joins[%d]: join requires an on-condition", i))
		}
	}
	if _, ok := qc.HavingPredicate(); ok && len(qc.Grouping()) == 0 {
		errs = append(errs, fmt.Errorf("having requires group by"))
	}
	return errs
}

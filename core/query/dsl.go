// Package query defines the typed query DSL: a recursive predicate tree,
// independent clause objects for every query axis, and the mutable
// QueryContext that aggregates them for one in-progress query. Rendering the
// DSL into a backend representation is left to result builders behind the
// interfaces in this package.
package query

// Operator is the set of comparison operators a predicate leaf can carry.
type Operator string

// Supported comparison operators.
const (
	OperatorEq         Operator = "eq"
	OperatorNe         Operator = "ne"
	OperatorGt         Operator = "gt"
	OperatorGe         Operator = "ge"
	OperatorLt         Operator = "lt"
	OperatorLe         Operator = "le"
	OperatorLike       Operator = "like"
	OperatorIn         Operator = "in"
	OperatorNotIn      Operator = "notIn"
	OperatorIsNull     Operator = "isNull"
	OperatorIsNotNull  Operator = "isNotNull"
	OperatorBetween    Operator = "between"
	OperatorExists     Operator = "exists"
	OperatorInSubquery Operator = "inSubquery"
)

// Combinator joins the children of a predicate group.
type Combinator string

// Supported logical combinators.
const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
	CombinatorNot Combinator = "not"
)

// ColumnRef marks a comparison operand as a column reference rather than a
// literal value. Conditions carrying one render as column-to-column
// comparisons and contribute no parameter; join on-conditions are the usual
// case.
type ColumnRef string

// Condition is a predicate leaf: a column compared against one or more
// values, or against a subquery for exists/inSubquery.
type Condition struct {
	Column   string
	Operator Operator
	Value    any           `json:",omitempty"` // single comparison value
	Values   []any         `json:",omitempty"` // in/notIn/between value lists
	Subquery *QueryContext `json:"-"`          // exists/inSubquery source
}

// PredicateGroup combines child predicates with a logical combinator.
type PredicateGroup struct {
	Combinator Combinator
	Children   []Predicate
}

// Predicate is the recursive predicate tree node: either a leaf condition or
// a group, never both. The zero Predicate is empty and renders to nothing.
type Predicate struct {
	Cond  *Condition      `json:",omitempty"`
	Group *PredicateGroup `json:",omitempty"`
}

// IsZero reports whether the predicate carries no condition at all.
func (p Predicate) IsZero() bool {
	return p.Cond == nil && p.Group == nil
}

// Eq builds a column = value predicate.
func Eq(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorEq, Value: value}}
}

// Ne builds a column <> value predicate.
func Ne(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorNe, Value: value}}
}

// Gt builds a column > value predicate.
func Gt(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorGt, Value: value}}
}

// Ge builds a column >= value predicate.
func Ge(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorGe, Value: value}}
}

// Lt builds a column < value predicate.
func Lt(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorLt, Value: value}}
}

// Le builds a column <= value predicate.
func Le(column string, value any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorLe, Value: value}}
}

// Like builds a column LIKE pattern predicate. The pattern is passed through
// verbatim; callers supply their own wildcards.
func Like(column string, pattern string) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorLike, Value: pattern}}
}

// In builds a column IN (values...) predicate.
func In(column string, values ...any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorIn, Values: values}}
}

// NotIn builds a column NOT IN (values...) predicate.
func NotIn(column string, values ...any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorNotIn, Values: values}}
}

// IsNull builds a column IS NULL predicate.
func IsNull(column string) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorIsNull}}
}

// IsNotNull builds a column IS NOT NULL predicate.
func IsNotNull(column string) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorIsNotNull}}
}

// Between builds a column BETWEEN low AND high predicate.
func Between(column string, low, high any) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorBetween, Values: []any{low, high}}}
}

// Exists builds an EXISTS (subquery) predicate.
func Exists(sub *QueryContext) Predicate {
	return Predicate{Cond: &Condition{Operator: OperatorExists, Subquery: sub}}
}

// InSubquery builds a column IN (subquery) predicate.
func InSubquery(column string, sub *QueryContext) Predicate {
	return Predicate{Cond: &Condition{Column: column, Operator: OperatorInSubquery, Subquery: sub}}
}

// And combines predicates so that all of them must hold. Zero-valued
// children are dropped; a single surviving child is returned unwrapped.
func And(children ...Predicate) Predicate {
	return group(CombinatorAnd, children)
}

// Or combines predicates so that at least one must hold.
func Or(children ...Predicate) Predicate {
	return group(CombinatorOr, children)
}

// Not negates a predicate.
func Not(child Predicate) Predicate {
	if child.IsZero() {
		return Predicate{}
	}
	return Predicate{Group: &PredicateGroup{Combinator: CombinatorNot, Children: []Predicate{child}}}
}

func group(c Combinator, children []Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, ch := range children {
		if !ch.IsZero() {
			kept = append(kept, ch)
		}
	}
	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	default:
		return Predicate{Group: &PredicateGroup{Combinator: c, Children: kept}}
	}
}

// Direction is a sort direction.
type Direction string

// Supported sort directions.
const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// JoinType is the join flavor of a JoinClause.
type JoinType string

// Supported join types.
const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// SelectClause is the projection axis of a query.
type SelectClause struct {
	Items    []SelectItem
	Distinct bool
}

// FromClause names the query source: a physical table, or an inline subquery
// with an alias.
type FromClause struct {
	Table    string
	Alias    string
	Subquery *QueryContext
}

// JoinClause is one entry of the ordered join list. Entity carries a
// prototype of the joined entity type; Table/Alias may override the derived
// physical names.
type JoinClause struct {
	Type   JoinType
	Entity any
	Table  string
	Alias  string
	On     Predicate
}

// WhereClause holds the WHERE predicate tree.
type WhereClause struct {
	Pred Predicate
}

// GroupByClause lists the grouping columns.
type GroupByClause struct {
	Columns []string
}

// HavingClause holds the HAVING predicate tree.
type HavingClause struct {
	Pred Predicate
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Column    string
	Direction Direction
}

// OrderByClause holds the ordered sort items.
type OrderByClause struct {
	Items []OrderItem
}

// PageClause holds offset/limit pagination. Limit < 0 means unbounded.
type PageClause struct {
	Offset int
	Limit  int
}

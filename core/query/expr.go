package query

// AggregateFunc names a SQL aggregate function.
type AggregateFunc string

// Supported aggregate functions.
const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// AggregateExpr is an aggregate projection item, e.g. COUNT(DISTINCT col).
type AggregateExpr struct {
	Fn       AggregateFunc
	Column   string // "*" for count(*)
	Distinct bool
}

// WindowExpr is a window-function projection item: fn(column) OVER
// (PARTITION BY ... ORDER BY ...).
type WindowExpr struct {
	Fn          string
	Column      string
	PartitionBy []string
	OrderBy     []OrderItem
}

// CaseWhen is one WHEN/THEN arm of a case expression.
type CaseWhen struct {
	When Predicate
	Then any
}

// CaseExpr is a conditional projection item, the analogue of a SQL CASE
// expression.
type CaseExpr struct {
	Whens []CaseWhen
	Else  any
}

// DateFormatExpr formats a date-valued column with a strftime-style
// pattern; the active dialect supplies the backend syntax.
type DateFormatExpr struct {
	Column  string
	Pattern string
}

// SelectItem is one projection entry: a plain column, an aggregate, a window
// expression, a case expression, or a date-format expression, optionally
// aliased. Exactly one of the expression fields is set.
type SelectItem struct {
	Column    string          `json:",omitempty"`
	Alias     string          `json:",omitempty"`
	Aggregate *AggregateExpr  `json:",omitempty"`
	Window    *WindowExpr     `json:",omitempty"`
	Case      *CaseExpr       `json:",omitempty"`
	Date      *DateFormatExpr `json:",omitempty"`
}

// Col builds a plain column projection item.
func Col(column string) SelectItem {
	return SelectItem{Column: column}
}

// ColAs builds an aliased column projection item.
func ColAs(column, alias string) SelectItem {
	return SelectItem{Column: column, Alias: alias}
}

// Count builds a COUNT aggregate item. Use "*" to count rows.
func Count(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggCount, Column: column}}
}

// CountDistinct builds a COUNT(DISTINCT column) aggregate item.
func CountDistinct(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggCount, Column: column, Distinct: true}}
}

// Sum builds a SUM aggregate item.
func Sum(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggSum, Column: column}}
}

// Avg builds an AVG aggregate item.
func Avg(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggAvg, Column: column}}
}

// Min builds a MIN aggregate item.
func Min(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggMin, Column: column}}
}

// Max builds a MAX aggregate item.
func Max(column, alias string) SelectItem {
	return SelectItem{Alias: alias, Aggregate: &AggregateExpr{Fn: AggMax, Column: column}}
}

// Window builds a window-function projection item.
func Window(fn, column, alias string, partitionBy []string, orderBy ...OrderItem) SelectItem {
	return SelectItem{Alias: alias, Window: &WindowExpr{
		Fn:          fn,
		Column:      column,
		PartitionBy: partitionBy,
		OrderBy:     orderBy,
	}}
}

// DateFormat builds a date-format projection item.
func DateFormat(column, pattern, alias string) SelectItem {
	return SelectItem{Alias: alias, Date: &DateFormatExpr{Column: column, Pattern: pattern}}
}

// CaseBuilder accumulates the arms of a case expression before attaching it
// to a query context's projection.
type CaseBuilder struct {
	alias string
	expr  CaseExpr
}

// Case starts a case expression with the given result alias.
func Case(alias string) *CaseBuilder {
	return &CaseBuilder{alias: alias}
}

// When adds a WHEN/THEN arm.
func (cb *CaseBuilder) When(when Predicate, then any) *CaseBuilder {
	cb.expr.Whens = append(cb.expr.Whens, CaseWhen{When: when, Then: then})
	return cb
}

// Else sets the fallback value.
func (cb *CaseBuilder) Else(value any) *CaseBuilder {
	cb.expr.Else = value
	return cb
}

// Item finalizes the case expression as a projection item.
func (cb *CaseBuilder) Item() SelectItem {
	expr := cb.expr
	return SelectItem{Alias: cb.alias, Case: &expr}
}

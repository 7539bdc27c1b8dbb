package sqlite

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// labelSeparator joins a table alias and a column name in an expanded
// projection label, matching the attribution convention of the row mapper.
const labelSeparator = "__"

// Builder renders query contexts into parameterized SQL. Placeholders are
// positional `?` marks; the parameter list is collected in clause render
// order (SELECT, FROM, JOIN, WHERE, GROUP BY, HAVING, ORDER BY, pagination),
// so parameters of a subquery rendered inside FROM precede those of the
// outer WHERE.
type Builder struct {
	dialect  query.Dialect
	resolver *schema.Resolver
	logger   *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderResolver overrides the metadata resolver.
func WithBuilderResolver(r *schema.Resolver) BuilderOption {
	return func(b *Builder) {
		if r != nil {
			b.resolver = r
		}
	}
}

// WithBuilderLogger attaches a logger.
func WithBuilderLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder rendering for the given dialect. A nil dialect
// falls back to the ANSI default.
func NewBuilder(dialect query.Dialect, opts ...BuilderOption) *Builder {
	b := &Builder{
		dialect:  dialect,
		resolver: schema.Default(),
		logger:   zap.NewNop(),
	}
	if b.dialect == nil {
		b.dialect = AnsiDialect{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// dialectFor prefers the dialect resolved onto the context over the
// builder's own.
func (b *Builder) dialectFor(qc *query.QueryContext) query.Dialect {
	if d := qc.Dialect(); d != nil {
		return d
	}
	return b.dialect
}

// renderMode selects which clauses of a context one render pass emits.
type renderMode int

const (
	// modeList renders the full query.
	modeList renderMode = iota
	// modeBody renders projection and filtering but drops ordering and
	// pagination; used as the inner query of a grouped count.
	modeBody
	// modeCount replaces the projection with COUNT(*) and drops ordering
	// and pagination.
	modeCount
)

// renderState is the per-render environment: the resolved primary entity,
// the alias registry shared with the row mapper, and per-alias metadata for
// qualified column resolution.
type renderState struct {
	dialect query.Dialect
	meta    *schema.EntityMetadata // nil for table-only or subquery sources
	table   string
	aliases *schema.AliasRegistry

	qualify      bool
	primaryAlias string
	aliasMeta    map[string]*schema.EntityMetadata
	joinAliases  []string // parallel to the context's join list
	joinMetas    []*schema.EntityMetadata

	selectAliases map[string]struct{}
}

// newState resolves the primary entity and registers every table alias the
// render will need. Aliases are registered in source order so generated
// names are deterministic: t0 for the primary table, t1 onward for joins.
func (b *Builder) newState(qc *query.QueryContext) (*renderState, error) {
	if errs := qc.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	st := &renderState{
		dialect:       b.dialectFor(qc),
		aliases:       qc.Aliases(),
		aliasMeta:     make(map[string]*schema.EntityMetadata),
		selectAliases: make(map[string]struct{}),
	}

	if e := qc.Entity(); e != nil {
		meta, err := b.resolver.Resolve(e)
		if err != nil {
			return nil, err
		}
		st.meta = meta
		st.table = meta.Table
	}

	src := qc.Source()
	if src != nil && src.Table != "" {
		st.table = src.Table
	}
	fromSub := src != nil && src.Subquery != nil
	if st.table == "" && !fromSub {
		return nil, fmt.Errorf("query has no source: an entity or an explicit table is required")
	}

	joins := qc.JoinClauses()
	if len(joins) == 0 && !fromSub {
		return st, nil
	}
	st.qualify = true

	switch {
	case fromSub:
		alias := src.Alias
		if alias == "" {
			alias = "sub"
		}
		st.primaryAlias = alias
		if st.meta != nil {
			st.aliasMeta[alias] = st.meta
		}
	default:
		alias, err := st.aliases.Register(st.table, "t0")
		if err != nil {
			return nil, err
		}
		st.primaryAlias = alias
		if st.meta != nil {
			st.aliasMeta[st.primaryAlias] = st.meta
		}
	}
	claimed := map[string]bool{st.primaryAlias: true}

	for i, j := range joins {
		table := j.Table
		var jm *schema.EntityMetadata
		if j.Entity != nil {
			meta, err := b.resolver.Resolve(j.Entity)
			if err != nil {
				return nil, fmt.Errorf("joins[%d]: %w", i, err)
			}
			jm = meta
			if table == "" {
				table = meta.Table
			}
		}
		if table == "" {
			return nil, fmt.Errorf("joins[%d]: join target cannot be empty", i)
		}
		// Aliases are fixed by join position so re-rendering the same
		// context (a list build followed by its count build) binds the
		// same names. A self-join or a table joined twice therefore gets
		// one alias per join entry, never a shared one.
		alias := j.Alias
		if alias == "" {
			alias = fmt.Sprintf("t%d", i+1)
		}
		if claimed[alias] {
			return nil, fmt.Errorf("joins[%d]: alias %q is already used by another source in this query", i, alias)
		}
		registered, err := st.aliases.Register(table, alias)
		if err != nil {
			return nil, fmt.Errorf("joins[%d]: %w", i, err)
		}
		claimed[registered] = true
		if jm != nil {
			st.aliasMeta[registered] = jm
		}
		st.joinAliases = append(st.joinAliases, registered)
		st.joinMetas = append(st.joinMetas, jm)
	}
	return st, nil
}

// BuildSelect renders the list representation of a context.
func (b *Builder) BuildSelect(qc *query.QueryContext) (*query.Rendered, error) {
	text, params, st, err := b.render(qc, modeList)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("rendered select", zap.String("sql", text))
	return &query.Rendered{
		Kind:   query.KindList,
		Entity: st.table,
		Text:   text,
		Params: params,
	}, nil
}

// BuildCount renders the row-count variant: ordering and pagination are
// dropped, every filtering clause and its parameters are preserved. A
// grouped query is counted by wrapping it, since its row count is the number
// of groups.
func (b *Builder) BuildCount(qc *query.QueryContext) (*query.Rendered, error) {
	mode := modeCount
	if len(qc.Grouping()) > 0 {
		mode = modeBody
	}
	text, params, st, err := b.render(qc, mode)
	if err != nil {
		return nil, err
	}
	if mode == modeBody {
		text = "SELECT COUNT(*) AS count FROM (" + text + ") AS grouped"
	}
	b.logger.Debug("rendered count", zap.String("sql", text))
	return &query.Rendered{
		Kind:   query.KindCount,
		Entity: st.table,
		Text:   text,
		Params: params,
	}, nil
}

// render is the single clause-order render pass shared by every select
// variant and by inline subqueries.
func (b *Builder) render(qc *query.QueryContext, mode renderMode) (string, []any, *renderState, error) {
	st, err := b.newState(qc)
	if err != nil {
		return "", nil, nil, err
	}

	var sb strings.Builder
	var params []any

	sel := qc.Selection()
	sb.WriteString("SELECT ")
	if mode == modeCount {
		sb.WriteString("COUNT(*) AS count")
	} else {
		if sel.Distinct {
			sb.WriteString("DISTINCT ")
		}
		if err := b.renderProjection(st, sel, &sb, &params); err != nil {
			return "", nil, nil, err
		}
	}

	sb.WriteString(" FROM ")
	if src := qc.Source(); src != nil && src.Subquery != nil {
		subText, subParams, _, err := b.render(src.Subquery, modeList)
		if err != nil {
			return "", nil, nil, fmt.Errorf("from subquery: %w", err)
		}
		fmt.Fprintf(&sb, "(%s) AS %s", subText, st.primaryAlias)
		params = append(params, subParams...)
	} else {
		sb.WriteString(st.table)
		if st.qualify {
			sb.WriteString(" AS " + st.primaryAlias)
		}
	}

	for i, j := range qc.JoinClauses() {
		table := j.Table
		if jm := st.joinMetas[i]; jm != nil && table == "" {
			table = jm.Table
		}
		fmt.Fprintf(&sb, " %s %s AS %s ON ", joinKeyword(j.Type), table, st.joinAliases[i])
		if err := b.renderPredicate(st, j.On, false, &sb, &params); err != nil {
			return "", nil, nil, fmt.Errorf("joins[%d]: %w", i, err)
		}
	}

	if where, ok := qc.WherePredicate(); ok {
		sb.WriteString(" WHERE ")
		if err := b.renderPredicate(st, where, false, &sb, &params); err != nil {
			return "", nil, nil, fmt.Errorf("where: %w", err)
		}
	}

	if grouping := qc.Grouping(); len(grouping) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, col := range grouping {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.columnRef(st, col, true))
		}
	}

	if having, ok := qc.HavingPredicate(); ok {
		sb.WriteString(" HAVING ")
		if err := b.renderPredicate(st, having, true, &sb, &params); err != nil {
			return "", nil, nil, fmt.Errorf("having: %w", err)
		}
	}

	if mode == modeList {
		if ordering := qc.Ordering(); len(ordering) > 0 {
			sb.WriteString(" ORDER BY ")
			for i, item := range ordering {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(b.columnRef(st, item.Column, true))
				if item.Direction == query.DirectionDesc {
					sb.WriteString(" DESC")
				} else {
					sb.WriteString(" ASC")
				}
			}
		}
		if page := qc.Pagination(); page != nil {
			sb.WriteString(st.dialect.Paginate(page.Offset, page.Limit))
		}
	}

	return sb.String(), params, st, nil
}

// renderProjection emits the SELECT list. An empty projection renders as a
// wildcard for single-table queries; under joins it expands to the full
// column set of the primary entity and of each distinct joined entity type,
// every column labeled alias__column so the row mapper can attribute it.
func (b *Builder) renderProjection(st *renderState, sel *query.SelectClause, sb *strings.Builder, params *[]any) error {
	if len(sel.Items) == 0 {
		if !st.qualify || st.meta == nil {
			sb.WriteString("*")
			return nil
		}
		first := true
		emit := func(alias string, meta *schema.EntityMetadata) {
			for _, col := range meta.Columns() {
				if !first {
					sb.WriteString(", ")
				}
				first = false
				fmt.Fprintf(sb, "%s.%s AS %s%s%s", alias, col.Name, alias, labelSeparator, col.Name)
			}
		}
		emit(st.primaryAlias, st.meta)
		seen := map[reflect.Type]bool{st.meta.Type: true}
		for i, jm := range st.joinMetas {
			if jm == nil || seen[jm.Type] {
				continue
			}
			seen[jm.Type] = true
			emit(st.joinAliases[i], jm)
		}
		return nil
	}

	for i, item := range sel.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := b.renderSelectItem(st, item, sb, params); err != nil {
			return err
		}
	}
	return nil
}

// renderSelectItem emits one projection entry. CASE arm results are
// parameterized in arm order, interleaved with the parameters of each arm's
// predicate.
func (b *Builder) renderSelectItem(st *renderState, item query.SelectItem, sb *strings.Builder, params *[]any) error {
	switch {
	case item.Aggregate != nil:
		agg := item.Aggregate
		column := agg.Column
		if column != "*" {
			column = b.columnRef(st, column, false)
		}
		if agg.Distinct {
			fmt.Fprintf(sb, "%s(DISTINCT %s)", strings.ToUpper(string(agg.Fn)), column)
		} else {
			fmt.Fprintf(sb, "%s(%s)", strings.ToUpper(string(agg.Fn)), column)
		}

	case item.Window != nil:
		w := item.Window
		column := w.Column
		if column != "*" && column != "" {
			column = b.columnRef(st, column, false)
		}
		fmt.Fprintf(sb, "%s(%s) OVER (", strings.ToUpper(w.Fn), column)
		if len(w.PartitionBy) > 0 {
			sb.WriteString("PARTITION BY ")
			for i, col := range w.PartitionBy {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(b.columnRef(st, col, false))
			}
		}
		if len(w.OrderBy) > 0 {
			if len(w.PartitionBy) > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("ORDER BY ")
			for i, o := range w.OrderBy {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(b.columnRef(st, o.Column, false))
				if o.Direction == query.DirectionDesc {
					sb.WriteString(" DESC")
				}
			}
		}
		sb.WriteString(")")

	case item.Case != nil:
		sb.WriteString("CASE")
		for _, arm := range item.Case.Whens {
			sb.WriteString(" WHEN ")
			if err := b.renderPredicate(st, arm.When, false, sb, params); err != nil {
				return err
			}
			if arm.Then == nil {
				sb.WriteString(" THEN NULL")
			} else {
				sb.WriteString(" THEN ?")
				*params = append(*params, arm.Then)
			}
		}
		if item.Case.Else != nil {
			sb.WriteString(" ELSE ?")
			*params = append(*params, item.Case.Else)
		}
		sb.WriteString(" END")

	case item.Date != nil:
		sb.WriteString(st.dialect.DateFormat(b.columnRef(st, item.Date.Column, false), item.Date.Pattern))

	case item.Column != "":
		sb.WriteString(b.columnRef(st, item.Column, false))

	default:
		return fmt.Errorf("projection item carries no expression")
	}

	if item.Alias != "" {
		sb.WriteString(" AS " + item.Alias)
		st.selectAliases[item.Alias] = struct{}{}
	}
	return nil
}

// renderPredicate walks the predicate tree, emitting SQL and appending
// parameters in placeholder order.
func (b *Builder) renderPredicate(st *renderState, p query.Predicate, allowAlias bool, sb *strings.Builder, params *[]any) error {
	switch {
	case p.Cond != nil:
		return b.renderCondition(st, p.Cond, allowAlias, sb, params)
	case p.Group != nil:
		g := p.Group
		if g.Combinator == query.CombinatorNot {
			sb.WriteString("NOT (")
			if err := b.renderPredicate(st, g.Children[0], allowAlias, sb, params); err != nil {
				return err
			}
			sb.WriteString(")")
			return nil
		}
		op := " AND "
		if g.Combinator == query.CombinatorOr {
			op = " OR "
		}
		sb.WriteString("(")
		for i, child := range g.Children {
			if i > 0 {
				sb.WriteString(op)
			}
			if err := b.renderPredicate(st, child, allowAlias, sb, params); err != nil {
				return err
			}
		}
		sb.WriteString(")")
		return nil
	default:
		return fmt.Errorf("empty predicate cannot be rendered")
	}
}

var comparisonSQL = map[query.Operator]string{
	query.OperatorEq:   "=",
	query.OperatorNe:   "<>",
	query.OperatorGt:   ">",
	query.OperatorGe:   ">=",
	query.OperatorLt:   "<",
	query.OperatorLe:   "<=",
	query.OperatorLike: "LIKE",
}

// renderCondition emits one predicate leaf. Empty IN lists collapse to
// constant truth values instead of producing invalid SQL: IN () can match
// nothing, NOT IN () excludes nothing.
func (b *Builder) renderCondition(st *renderState, c *query.Condition, allowAlias bool, sb *strings.Builder, params *[]any) error {
	if c.Operator == query.OperatorExists {
		if c.Subquery == nil {
			return fmt.Errorf("exists requires a subquery")
		}
		subText, subParams, _, err := b.render(c.Subquery, modeList)
		if err != nil {
			return fmt.Errorf("exists subquery: %w", err)
		}
		sb.WriteString("EXISTS (" + subText + ")")
		*params = append(*params, subParams...)
		return nil
	}

	ref := b.columnRef(st, c.Column, allowAlias)

	switch c.Operator {
	case query.OperatorEq, query.OperatorNe, query.OperatorGt, query.OperatorGe,
		query.OperatorLt, query.OperatorLe, query.OperatorLike:
		if cr, ok := c.Value.(query.ColumnRef); ok {
			fmt.Fprintf(sb, "%s %s %s", ref, comparisonSQL[c.Operator], b.columnRef(st, string(cr), allowAlias))
			return nil
		}
		fmt.Fprintf(sb, "%s %s ?", ref, comparisonSQL[c.Operator])
		*params = append(*params, c.Value)

	case query.OperatorIn, query.OperatorNotIn:
		if len(c.Values) == 0 {
			if c.Operator == query.OperatorIn {
				sb.WriteString("1=0")
			} else {
				sb.WriteString("1=1")
			}
			return nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.Values)), ", ")
		if c.Operator == query.OperatorIn {
			fmt.Fprintf(sb, "%s IN (%s)", ref, marks)
		} else {
			fmt.Fprintf(sb, "%s NOT IN (%s)", ref, marks)
		}
		*params = append(*params, c.Values...)

	case query.OperatorIsNull:
		sb.WriteString(ref + " IS NULL")

	case query.OperatorIsNotNull:
		sb.WriteString(ref + " IS NOT NULL")

	case query.OperatorBetween:
		if len(c.Values) != 2 {
			return fmt.Errorf("between requires exactly two values, got %d", len(c.Values))
		}
		sb.WriteString(ref + " BETWEEN ? AND ?")
		*params = append(*params, c.Values[0], c.Values[1])

	case query.OperatorInSubquery:
		if c.Subquery == nil {
			return fmt.Errorf("inSubquery requires a subquery")
		}
		subText, subParams, _, err := b.render(c.Subquery, modeList)
		if err != nil {
			return fmt.Errorf("in subquery: %w", err)
		}
		sb.WriteString(ref + " IN (" + subText + ")")
		*params = append(*params, subParams...)

	default:
		return fmt.Errorf("unsupported operator %q", c.Operator)
	}
	return nil
}

// columnRef resolves one column reference to its rendered form. A qualified
// reference (alias.field, table.field or EntityName.field) resolves against
// the named source; an unqualified one resolves against the primary entity
// and is alias-qualified whenever the query carries joins. References that
// resolve nowhere pass through verbatim, since expressions and raw column
// names are legitimate. With allowAlias set, a reference matching a
// projection alias is used as-is; sort and group axes may address computed
// projection items by their label.
func (b *Builder) columnRef(st *renderState, ref string, allowAlias bool) string {
	if allowAlias {
		if _, ok := st.selectAliases[ref]; ok {
			return ref
		}
	}

	if qual, field, ok := strings.Cut(ref, "."); ok {
		alias, meta := st.source(qual)
		if alias == "" {
			return ref
		}
		if meta != nil {
			if fr, err := b.resolver.ResolveField(meta.Type, field); err == nil {
				return alias + "." + fr.Column
			}
		}
		return alias + "." + field
	}

	column := ref
	if st.meta != nil {
		if fr, err := b.resolver.ResolveField(st.meta.Type, ref); err == nil {
			column = fr.Column
		}
	}
	if st.qualify {
		return st.primaryAlias + "." + column
	}
	return column
}

// source maps a reference qualifier to an alias and its metadata. The
// qualifier may be a registered alias, a physical table name, or a Go entity
// type name.
func (st *renderState) source(qual string) (string, *schema.EntityMetadata) {
	if meta, ok := st.aliasMeta[qual]; ok {
		return qual, meta
	}
	if _, ok := st.aliases.TableFor(qual); ok {
		return qual, nil
	}
	if alias, ok := st.aliases.AliasFor(qual); ok {
		return alias, st.aliasMeta[alias]
	}
	for alias, meta := range st.aliasMeta {
		if meta != nil && meta.Type.Name() == qual {
			return alias, meta
		}
	}
	if st.meta != nil && (qual == st.meta.Table || qual == st.meta.Type.Name()) {
		if st.primaryAlias != "" {
			return st.primaryAlias, st.meta
		}
		return st.meta.Table, st.meta
	}
	return "", nil
}

func joinKeyword(t query.JoinType) string {
	switch t {
	case query.JoinLeft:
		return "LEFT JOIN"
	case query.JoinRight:
		return "RIGHT JOIN"
	case query.JoinFull:
		return "FULL JOIN"
	default:
		return "INNER JOIN"
	}
}

// BuildInsert renders a multi-row insert over the entity's insertable
// columns, in metadata order. Every record must supply values under the
// physical column names; missing columns insert as NULL.
func (b *Builder) BuildInsert(meta *schema.EntityMetadata, records []schema.Document) (*query.Rendered, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("insert requires at least one record")
	}
	columns := meta.InsertableColumns()
	if len(columns) == 0 {
		return nil, fmt.Errorf("entity %s has no insertable columns", meta.Type.Name())
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", meta.Table, strings.Join(names, ", "))

	params := make([]any, 0, len(records)*len(columns))
	for i, record := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
		for _, c := range columns {
			params = append(params, record[c.Name])
		}
	}

	return &query.Rendered{
		Kind:   query.KindInsert,
		Entity: meta.Table,
		Text:   sb.String(),
		Params: params,
	}, nil
}

// BuildUpdate renders an update of the given columns for every row matching
// the predicate. Assignments follow metadata column order so the rendering
// is deterministic regardless of map iteration; read-only and generated
// columns are refused.
func (b *Builder) BuildUpdate(meta *schema.EntityMetadata, updates schema.Document, where query.Predicate) (*query.Rendered, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("update requires at least one assignment")
	}

	var sb strings.Builder
	var params []any
	fmt.Fprintf(&sb, "UPDATE %s SET ", meta.Table)

	assigned := 0
	for _, c := range meta.Columns() {
		value, ok := updates[c.Name]
		if !ok {
			continue
		}
		if c.Generated || c.ReadOnly {
			return nil, fmt.Errorf("column %q of %s cannot be updated", c.Name, meta.Type.Name())
		}
		if assigned > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name + " = ?")
		params = append(params, value)
		assigned++
	}
	if assigned != len(updates) {
		for name := range updates {
			if _, ok := meta.ColumnByName(name); !ok {
				return nil, fmt.Errorf("entity %s has no column %q", meta.Type.Name(), name)
			}
		}
	}

	if !where.IsZero() {
		sb.WriteString(" WHERE ")
		st := &renderState{
			dialect:       b.dialect,
			meta:          meta,
			table:         meta.Table,
			aliases:       schema.NewAliasRegistry(),
			aliasMeta:     make(map[string]*schema.EntityMetadata),
			selectAliases: make(map[string]struct{}),
		}
		if err := b.renderPredicate(st, where, false, &sb, &params); err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
	}

	return &query.Rendered{
		Kind:   query.KindUpdate,
		Entity: meta.Table,
		Text:   sb.String(),
		Params: params,
	}, nil
}

// BuildDelete renders a delete of every row matching the predicate. An empty
// predicate would clear the table, which is refused unless the caller
// explicitly opts into the unsafe delete.
func (b *Builder) BuildDelete(meta *schema.EntityMetadata, where query.Predicate, unsafeDelete bool) (*query.Rendered, error) {
	if where.IsZero() && !unsafeDelete {
		return nil, fmt.Errorf("refusing to delete all rows of %s without an explicit unsafe delete", meta.Table)
	}

	var sb strings.Builder
	var params []any
	fmt.Fprintf(&sb, "DELETE FROM %s", meta.Table)

	if !where.IsZero() {
		sb.WriteString(" WHERE ")
		st := &renderState{
			dialect:       b.dialect,
			meta:          meta,
			table:         meta.Table,
			aliases:       schema.NewAliasRegistry(),
			aliasMeta:     make(map[string]*schema.EntityMetadata),
			selectAliases: make(map[string]struct{}),
		}
		if err := b.renderPredicate(st, where, false, &sb, &params); err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
	}

	return &query.Rendered{
		Kind:   query.KindDelete,
		Entity: meta.Table,
		Text:   sb.String(),
		Params: params,
	}, nil
}

// Package document provides the document-oriented backend of the engine: a
// result builder rendering query contexts to nested key-value documents, a
// filter matcher evaluating those documents against stored records, and an
// executor over a pluggable document store.
package document

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/persistence"
	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// Reserved top-level keys of a rendered query document.
const (
	KeyFilter     = "filter"
	KeySort       = "sort"
	KeyLimit      = "limit"
	KeySkip       = "skip"
	KeyProjection = "projection"
)

// backendName identifies this backend in capability errors.
const backendName = "document"

// Builder renders query contexts into nested key-value documents under the
// reserved keys filter, sort, limit, skip and projection. The rendering is
// plain data, serializable as JSON; values are embedded in the filter rather
// than collected as positional parameters. Relational constructs the
// document model cannot express are rejected with a capability error at
// build time.
type Builder struct {
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

// NewBuilder creates a document result builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		resolver: schema.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildSelect renders the list representation of a context.
func (b *Builder) BuildSelect(qc *query.QueryContext) (*query.Rendered, error) {
	meta, doc, err := b.renderBody(qc)
	if err != nil {
		return nil, err
	}

	if items := qc.Selection().Items; len(items) > 0 {
		projection := make([]any, 0, len(items))
		for _, item := range items {
			if item.Column == "" {
				return nil, &persistence.CapabilityError{Backend: backendName, Operation: "computed projections"}
			}
			projection = append(projection, b.column(meta, item.Column))
		}
		doc[KeyProjection] = projection
	}

	if ordering := qc.Ordering(); len(ordering) > 0 {
		sorts := make([]any, 0, len(ordering))
		for _, item := range ordering {
			sorts = append(sorts, map[string]any{
				"field":     b.column(meta, item.Column),
				"direction": string(item.Direction),
			})
		}
		doc[KeySort] = sorts
	}

	if page := qc.Pagination(); page != nil {
		if page.Offset > 0 {
			doc[KeySkip] = page.Offset
		}
		if page.Limit >= 0 {
			doc[KeyLimit] = page.Limit
		}
	}

	return &query.Rendered{
		Kind:     query.KindList,
		Entity:   meta.Table,
		Document: doc,
	}, nil
}

// BuildCount renders the count variant: the same filter, without sort,
// pagination or projection.
func (b *Builder) BuildCount(qc *query.QueryContext) (*query.Rendered, error) {
	meta, doc, err := b.renderBody(qc)
	if err != nil {
		return nil, err
	}
	return &query.Rendered{
		Kind:     query.KindCount,
		Entity:   meta.Table,
		Document: doc,
	}, nil
}

// renderBody resolves the primary entity and renders the shared filter part,
// rejecting the relational constructs a document store cannot express.
func (b *Builder) renderBody(qc *query.QueryContext) (*schema.EntityMetadata, map[string]any, error) {
	if len(qc.JoinClauses()) > 0 {
		return nil, nil, &persistence.CapabilityError{Backend: backendName, Operation: "joins"}
	}
	if src := qc.Source(); src != nil && src.Subquery != nil {
		return nil, nil, &persistence.CapabilityError{Backend: backendName, Operation: "subquery sources"}
	}
	if len(qc.Grouping()) > 0 {
		return nil, nil, &persistence.CapabilityError{Backend: backendName, Operation: "grouping"}
	}
	if qc.Selection().Distinct {
		return nil, nil, &persistence.CapabilityError{Backend: backendName, Operation: "distinct projections"}
	}

	meta, err := b.resolver.Resolve(qc.Entity())
	if err != nil {
		return nil, nil, err
	}

	doc := make(map[string]any)
	if where, ok := qc.WherePredicate(); ok {
		filter, err := b.renderPredicate(meta, where)
		if err != nil {
			return nil, nil, err
		}
		doc[KeyFilter] = filter
	}
	return meta, doc, nil
}

// renderPredicate converts a predicate tree into its nested document form:
// leaves become {column: {$op: operand}}, groups become {$and|$or|$not: [...]}.
func (b *Builder) renderPredicate(meta *schema.EntityMetadata, p query.Predicate) (map[string]any, error) {
	switch {
	case p.Cond != nil:
		return b.renderCondition(meta, p.Cond)
	case p.Group != nil:
		children := make([]any, 0, len(p.Group.Children))
		for _, child := range p.Group.Children {
			rendered, err := b.renderPredicate(meta, child)
			if err != nil {
				return nil, err
			}
			children = append(children, rendered)
		}
		switch p.Group.Combinator {
		case query.CombinatorNot:
			return map[string]any{"$not": children[0]}, nil
		case query.CombinatorOr:
			return map[string]any{"$or": children}, nil
		default:
			return map[string]any{"$and": children}, nil
		}
	default:
		return nil, fmt.Errorf("empty predicate cannot be rendered")
	}
}

func (b *Builder) renderCondition(meta *schema.EntityMetadata, c *query.Condition) (map[string]any, error) {
	if c.Subquery != nil {
		return nil, &persistence.CapabilityError{Backend: backendName, Operation: "subquery predicates"}
	}
	if _, ok := c.Value.(query.ColumnRef); ok {
		return nil, &persistence.CapabilityError{Backend: backendName, Operation: "column-to-column comparisons"}
	}

	column := b.column(meta, c.Column)
	var operand any
	switch c.Operator {
	case query.OperatorIn, query.OperatorNotIn, query.OperatorBetween:
		operand = append([]any(nil), c.Values...)
	case query.OperatorIsNull, query.OperatorIsNotNull:
		operand = true
	default:
		operand = c.Value
	}
	return map[string]any{column: map[string]any{"$" + string(c.Operator): operand}}, nil
}

// column resolves a field token to its physical column, passing unresolvable
// tokens through verbatim.
func (b *Builder) column(meta *schema.EntityMetadata, ref string) string {
	if fr, err := b.resolver.ResolveField(meta.Type, ref); err == nil {
		return fr.Column
	}
	return ref
}

// BuildInsert renders an insert of the given records.
func (b *Builder) BuildInsert(meta *schema.EntityMetadata, records []schema.Document) (*query.Rendered, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("insert requires at least one record")
	}
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = map[string]any(r)
	}
	return &query.Rendered{
		Kind:     query.KindInsert,
		Entity:   meta.Table,
		Document: map[string]any{"insert": docs},
	}, nil
}

// BuildUpdate is not expressible on this backend: a filtered bulk update has
// no single-document equivalent here, and the engine refuses to guess.
func (b *Builder) BuildUpdate(meta *schema.EntityMetadata, updates schema.Document, where query.Predicate) (*query.Rendered, error) {
	return nil, &persistence.CapabilityError{Backend: backendName, Operation: "bulk update"}
}

// BuildDelete renders a filtered delete, keeping the unsafe-delete guard: an
// empty predicate clears the collection and must be opted into explicitly.
func (b *Builder) BuildDelete(meta *schema.EntityMetadata, where query.Predicate, unsafeDelete bool) (*query.Rendered, error) {
	if where.IsZero() && !unsafeDelete {
		return nil, fmt.Errorf("refusing to delete all documents of %s without an explicit unsafe delete", meta.Table)
	}
	doc := make(map[string]any)
	if !where.IsZero() {
		filter, err := b.renderPredicate(meta, where)
		if err != nil {
			return nil, err
		}
		doc[KeyFilter] = filter
	}
	return &query.Rendered{
		Kind:     query.KindDelete,
		Entity:   meta.Table,
		Document: doc,
	}, nil
}

// Interfaces that decouple the query DSL from the backends that render and
// execute it: the dialect contract and the result-builder contract.
package query

import (
	"github.com/kishultan/go-strata/core/schema"
)

// Dialect is the strategy object for backend-specific syntax: pagination,
// identifier quoting, and date formatting. A pipeline resolves its dialect
// once; resolution failures fall back to a conservative ANSI default and
// never surface to the caller.
type Dialect interface {
	// Name identifies the dialect, e.g. "sqlite" or "ansi".
	Name() string

	// Paginate renders an offset/limit fragment, including any leading
	// space. A negative limit means unbounded.
	Paginate(offset, limit int) string

	// DateFormat renders an expression formatting a date-valued column
	// according to a strftime-style pattern.
	DateFormat(column, pattern string) string

	// Quote wraps an identifier in the dialect's quoting characters.
	Quote(identifier string) string

	// Unquote strips the dialect's quoting characters from an identifier.
	Unquote(identifier string) string
}

// Kind classifies a rendered representation by the operation it performs.
type Kind string

// Rendered representation kinds.
const (
	KindList   Kind = "list"
	KindCount  Kind = "count"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Rendered is one backend-specific representation of a query, paired with
// its ordered parameter list. Row-oriented backends populate Text with
// parameterized SQL; document-oriented backends populate Document with a
// nested structure under the reserved keys filter, sort, limit, skip and
// projection. The parameter list always matches the left-to-right order of
// value positions in the representation.
type Rendered struct {
	Kind     Kind
	Entity   string // physical table / collection the representation targets
	Text     string
	Document map[string]any
	Params   []any
}

// ResultBuilder renders a query context into a backend representation, plus
// the parallel row-count variant that strips ordering and pagination while
// preserving every filtering clause and its parameters.
type ResultBuilder interface {
	BuildSelect(qc *QueryContext) (*Rendered, error)
	BuildCount(qc *QueryContext) (*Rendered, error)
	BuildInsert(meta *schema.EntityMetadata, records []schema.Document) (*Rendered, error)
	BuildUpdate(meta *schema.EntityMetadata, updates schema.Document, where Predicate) (*Rendered, error)
	BuildDelete(meta *schema.EntityMetadata, where Predicate, unsafeDelete bool) (*Rendered, error)
}

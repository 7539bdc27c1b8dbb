package persistence

import (
	"context"

	"github.com/kishultan/go-strata/core/query"
)

// Executor is the single execution contract shared by row-oriented and
// document-oriented backends. Implementations take a rendered representation
// plus its ordered parameters, run it, and apply the supplied mapper to the
// raw result. Connection handling is the implementation's concern: a caller
// with an active external transaction gets its connection reused, anyone
// else gets a call-scoped one.
type Executor interface {
	// ExecuteList runs a list-shaped representation and maps every result
	// row through the mapper, including the duplicate-parent merge pass.
	ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *Mapper) ([]any, error)

	// ExecuteCount runs a count-shaped representation and returns the
	// single aggregate value.
	ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error)

	// ExecuteWrite runs an insert/update/delete representation and returns
	// the affected row count.
	ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error)
}

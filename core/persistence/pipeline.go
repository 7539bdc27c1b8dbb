package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// Pipeline ties one result builder and one executor into the engine's data
// flow: a caller-built query context is rendered, executed, and mapped, with
// any decorators (cache, monitor) already wrapped around the executor.
type Pipeline struct {
	builder  query.ResultBuilder
	executor Executor
	resolver *schema.Resolver
	policy   MappingPolicy
	logger   *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger attaches a logger.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPipelineResolver overrides the metadata resolver used for writes and
// row mapping.
func WithPipelineResolver(r *schema.Resolver) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithUnmappedColumnPolicy sets the mapper policy applied to query results.
func WithUnmappedColumnPolicy(policy MappingPolicy) PipelineOption {
	return func(p *Pipeline) { p.policy = policy }
}

// NewPipeline creates a pipeline over a result builder and an executor.
func NewPipeline(builder query.ResultBuilder, executor Executor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		builder:  builder,
		executor: executor,
		resolver: schema.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// mapper builds the row mapper for one query: the target decides the mapping
// mode, the context's alias registry attributes joined columns.
func (p *Pipeline) mapper(qc *query.QueryContext, target any) *Mapper {
	return NewMapper(target,
		WithAliases(qc.Aliases()),
		WithResolver(p.resolver),
		WithMappingPolicy(p.policy),
		WithMapperLogger(p.logger),
	)
}

// List renders and executes the context, mapping rows onto the target
// prototype (struct pointer, map, or scalar).
func (p *Pipeline) List(ctx context.Context, qc *query.QueryContext, target any) ([]any, error) {
	rendered, err := p.builder.BuildSelect(qc)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("executing list query",
		zap.String("representation", rendered.Text),
		zap.Any("params", rendered.Params))
	return p.executor.ExecuteList(ctx, rendered, p.mapper(qc, target))
}

// One executes the context limited to a single row and returns it, or nil
// when no row matches.
func (p *Pipeline) One(ctx context.Context, qc *query.QueryContext, target any) (any, error) {
	limited := qc.Clone().Limit(1)
	results, err := p.List(ctx, limited, target)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Count renders and executes the row-count variant of the context.
func (p *Pipeline) Count(ctx context.Context, qc *query.QueryContext) (int64, error) {
	rendered, err := p.builder.BuildCount(qc)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("executing count query",
		zap.String("representation", rendered.Text),
		zap.Any("params", rendered.Params))
	return p.executor.ExecuteCount(ctx, rendered)
}

// Insert writes the given records for an entity and returns the affected
// row count.
func (p *Pipeline) Insert(ctx context.Context, entity any, records []schema.Document) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	meta, err := p.resolver.Resolve(entity)
	if err != nil {
		return 0, err
	}
	rendered, err := p.builder.BuildInsert(meta, records)
	if err != nil {
		return 0, err
	}
	return p.executor.ExecuteWrite(ctx, rendered)
}

// Update applies the given column updates to every row matching the
// predicate.
func (p *Pipeline) Update(ctx context.Context, entity any, updates schema.Document, where query.Predicate) (int64, error) {
	if len(updates) == 0 {
		return 0, fmt.Errorf("no fields provided for update")
	}
	meta, err := p.resolver.Resolve(entity)
	if err != nil {
		return 0, err
	}
	rendered, err := p.builder.BuildUpdate(meta, updates, where)
	if err != nil {
		return 0, err
	}
	return p.executor.ExecuteWrite(ctx, rendered)
}

// Delete removes every row matching the predicate. A zero predicate is
// refused unless unsafeDelete is set.
func (p *Pipeline) Delete(ctx context.Context, entity any, where query.Predicate, unsafeDelete bool) (int64, error) {
	meta, err := p.resolver.Resolve(entity)
	if err != nil {
		return 0, err
	}
	rendered, err := p.builder.BuildDelete(meta, where, unsafeDelete)
	if err != nil {
		return 0, err
	}
	return p.executor.ExecuteWrite(ctx, rendered)
}

// Stream opens a forward-only cursor over the context using sequential
// batching: repeated paginated executions of batchSize rows starting at
// offset zero.
func (p *Pipeline) Stream(qc *query.QueryContext, target any, batchSize int) *Stream {
	return NewStream(p.batchFunc(qc, target), batchSize)
}

// StreamAt opens a forward-only cursor starting at an explicit offset,
// enabling resumable or skip-ahead consumption.
func (p *Pipeline) StreamAt(qc *query.QueryContext, target any, batchSize, offset int) *Stream {
	return NewStreamAt(p.batchFunc(qc, target), batchSize, offset)
}

// batchFunc adapts the pipeline into the cursor's fetch contract. The cursor
// owns the cloned context for its whole consumption.
func (p *Pipeline) batchFunc(qc *query.QueryContext, target any) BatchFunc {
	owned := qc.Clone()
	return func(ctx context.Context, offset, limit int) ([]any, error) {
		owned.Page(offset, limit)
		return p.List(ctx, owned, target)
	}
}

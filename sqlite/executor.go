package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/persistence"
	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// runner is the subset of database/sql shared by *sql.DB and *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxProvider surfaces an external transaction bound to the context. When one
// is active the executor runs on its connection; otherwise each execution
// gets a call-scoped connection from the pool.
type TxProvider interface {
	ActiveTx(ctx context.Context) (*sql.Tx, bool)
}

// Executor runs rendered SQL over database/sql and maps the raw rows through
// the caller's mapper.
type Executor struct {
	db     *sql.DB
	txs    TxProvider
	logger *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTxProvider attaches an external transaction source.
func WithTxProvider(p TxProvider) ExecutorOption {
	return func(e *Executor) { e.txs = p }
}

// WithExecutorLogger attaches a logger.
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor over a database handle.
func NewExecutor(db *sql.DB, opts ...ExecutorOption) *Executor {
	e := &Executor{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runnerFor selects the connection for one execution: the caller's active
// transaction when one is bound to the context, the pool otherwise.
func (e *Executor) runnerFor(ctx context.Context) runner {
	if e.txs != nil {
		if tx, ok := e.txs.ActiveTx(ctx); ok && tx != nil {
			return tx
		}
	}
	return e.db
}

// ExecuteList runs a list representation and maps the result set.
func (e *Executor) ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *persistence.Mapper) ([]any, error) {
	rows, err := e.runnerFor(ctx).QueryContext(ctx, rendered.Text, rendered.Params...)
	if err != nil {
		return nil, execError(rendered, err)
	}
	defer rows.Close()

	docs, err := readRows(rows)
	if err != nil {
		return nil, execError(rendered, err)
	}
	return mapper.MapRows(docs)
}

// ExecuteCount runs a count representation and returns the aggregate.
func (e *Executor) ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error) {
	rows, err := e.runnerFor(ctx).QueryContext(ctx, rendered.Text, rendered.Params...)
	if err != nil {
		return 0, execError(rendered, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, execError(rendered, err)
		}
		return 0, execError(rendered, fmt.Errorf("count query returned no rows"))
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, execError(rendered, err)
	}
	return count, rows.Err()
}

// ExecuteWrite runs a write representation and returns the affected rows.
func (e *Executor) ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error) {
	result, err := e.runnerFor(ctx).ExecContext(ctx, rendered.Text, rendered.Params...)
	if err != nil {
		return 0, execError(rendered, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, execError(rendered, err)
	}
	return affected, nil
}

func execError(rendered *query.Rendered, err error) error {
	return &persistence.ExecutionError{
		Representation: rendered.Text,
		Params:         append([]any(nil), rendered.Params...),
		Err:            err,
	}
}

// readRows drains a result set into label-keyed documents. Text arrives from
// the sqlite driver as []byte; it is normalized to string so documents are
// comparable and serializable without surprises.
func readRows(rows *sql.Rows) ([]schema.Document, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var docs []schema.Document
	for rows.Next() {
		values := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, err
		}
		doc := make(schema.Document, len(columns))
		for i, name := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			doc[name] = v
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

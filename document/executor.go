package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/persistence"
	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

// Store is the persistence contract of the document backend. Collections are
// keyed by the entity's table name.
type Store interface {
	// List returns every document of a collection.
	List(ctx context.Context, collection string) ([]schema.Document, error)

	// Insert appends documents to a collection, returning the inserted count.
	Insert(ctx context.Context, collection string, docs []schema.Document) (int64, error)

	// Delete removes every document the match function accepts, returning
	// the removed count.
	Delete(ctx context.Context, collection string, match func(schema.Document) (bool, error)) (int64, error)
}

// MemoryStore is the in-memory reference Store. Documents are copied on the
// way in and out, so callers never share mutable state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]schema.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]schema.Document)}
}

// List returns a deep-enough copy of a collection.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	out := make([]schema.Document, len(docs))
	for i, d := range docs {
		out[i] = copyDocument(d)
	}
	return out, nil
}

// Insert appends documents to a collection.
func (s *MemoryStore) Insert(ctx context.Context, collection string, docs []schema.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.collections[collection] = append(s.collections[collection], copyDocument(d))
	}
	return int64(len(docs)), nil
}

// Delete removes matching documents from a collection.
func (s *MemoryStore) Delete(ctx context.Context, collection string, match func(schema.Document) (bool, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.collections[collection][:0]
	var removed int64
	for _, d := range s.collections[collection] {
		ok, err := match(d)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.collections[collection] = kept
	return removed, nil
}

func copyDocument(d schema.Document) schema.Document {
	out := make(schema.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Executor runs rendered query documents against a Store.
type Executor struct {
	store  Store
	logger *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger attaches a logger.
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor over a document store.
func NewExecutor(store Store, opts ...ExecutorOption) *Executor {
	e := &Executor{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteList evaluates the rendered document against the store and maps the
// surviving documents through the caller's mapper.
func (e *Executor) ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *persistence.Mapper) ([]any, error) {
	docs, err := e.evaluate(ctx, rendered)
	if err != nil {
		return nil, err
	}

	if sorts, ok := rendered.Document[KeySort].([]any); ok {
		sortDocuments(docs, sorts)
	}

	if skip, ok := asInt(rendered.Document[KeySkip]); ok {
		if skip >= len(docs) {
			docs = nil
		} else {
			docs = docs[skip:]
		}
	}
	if limit, ok := asInt(rendered.Document[KeyLimit]); ok && limit < len(docs) {
		docs = docs[:limit]
	}

	if projection, ok := rendered.Document[KeyProjection].([]any); ok {
		docs = project(docs, projection)
	}

	return mapper.MapRows(docs)
}

// ExecuteCount evaluates the filter and returns the matching count.
func (e *Executor) ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error) {
	docs, err := e.evaluate(ctx, rendered)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// ExecuteWrite applies a rendered write document to the store.
func (e *Executor) ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error) {
	switch rendered.Kind {
	case query.KindInsert:
		raw, ok := rendered.Document["insert"].([]any)
		if !ok {
			return 0, fmt.Errorf("insert document carries no records")
		}
		docs := make([]schema.Document, 0, len(raw))
		for _, r := range raw {
			m, ok := r.(map[string]any)
			if !ok {
				return 0, fmt.Errorf("insert record must be a document, got %T", r)
			}
			docs = append(docs, schema.Document(m))
		}
		return e.store.Insert(ctx, rendered.Entity, docs)

	case query.KindDelete:
		filter, _ := rendered.Document[KeyFilter].(map[string]any)
		return e.store.Delete(ctx, rendered.Entity, func(d schema.Document) (bool, error) {
			return Match(filter, d)
		})

	case query.KindUpdate:
		return 0, &persistence.CapabilityError{Backend: backendName, Operation: "bulk update"}

	default:
		return 0, fmt.Errorf("unsupported write kind %q", rendered.Kind)
	}
}

// evaluate lists the collection and applies the filter. The result is always
// a fresh slice: the store may hand out its own backing array, and the sort
// and pagination passes downstream reorder and reslice their input.
func (e *Executor) evaluate(ctx context.Context, rendered *query.Rendered) ([]schema.Document, error) {
	docs, err := e.store.List(ctx, rendered.Entity)
	if err != nil {
		return nil, err
	}
	filter, hasFilter := rendered.Document[KeyFilter].(map[string]any)

	out := make([]schema.Document, 0, len(docs))
	for _, d := range docs {
		if hasFilter {
			matched, err := Match(filter, d)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// sortDocuments orders documents by the rendered sort entries, applied in
// sequence with stable ties.
func sortDocuments(docs []schema.Document, sorts []any) {
	for i := len(sorts) - 1; i >= 0; i-- {
		entry, ok := sorts[i].(map[string]any)
		if !ok {
			continue
		}
		field, _ := entry["field"].(string)
		desc := entry["direction"] == string(query.DirectionDesc)
		sort.SliceStable(docs, func(a, b int) bool {
			less := lessValue(docs[a][field], docs[b][field])
			if desc {
				return lessValue(docs[b][field], docs[a][field])
			}
			return less
		})
	}
}

// lessValue orders two field values: nil first, numerics by value, strings
// lexically, anything else by formatted representation.
func lessValue(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if af, ok := query.ToFloat64(a); ok {
		if bf, ok := query.ToFloat64(b); ok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// project reduces each document to the listed fields.
func project(docs []schema.Document, fields []any) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, d := range docs {
		p := make(schema.Document, len(fields))
		for _, f := range fields {
			name, ok := f.(string)
			if !ok {
				continue
			}
			if v, present := d[name]; present {
				p[name] = v
			}
		}
		out[i] = p
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

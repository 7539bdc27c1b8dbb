package schema

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// FieldRef is the resolution of a typed field reference: which entity type
// declares the field, what the field and column are called, and which table
// the column lives in.
type FieldRef struct {
	Entity   reflect.Type
	Field    string
	Declared reflect.Type
	Column   string
	Table    string
}

// Resolver maps entity types and field references to physical names. Entity
// metadata and field resolutions are computed once and then served from a
// process-wide, read-mostly cache; entries are immutable after construction,
// so concurrent lookups need no external locking.
type Resolver struct {
	transform NameTransform
	logger    *zap.Logger

	mu     sync.RWMutex
	metas  map[reflect.Type]*EntityMetadata
	fields map[fieldKey]*FieldRef
}

type fieldKey struct {
	t     reflect.Type
	field string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithNameTransform replaces the default CamelCase-to-snake_case transform
// used for both column and table name derivation.
func WithNameTransform(transform NameTransform) ResolverOption {
	return func(r *Resolver) {
		if transform != nil {
			r.transform = transform
		}
	}
}

// WithLogger attaches a logger to the resolver.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates an empty resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		transform: SnakeCase,
		logger:    zap.NewNop(),
		metas:     make(map[reflect.Type]*EntityMetadata),
		fields:    make(map[fieldKey]*FieldRef),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// defaultResolver is the process-wide resolver used by the package-level
// functions. It is populated lazily on first use and cleared only through
// ResetMetadata.
var (
	defaultResolver   = NewResolver()
	defaultResolverMu sync.Mutex
)

// Default returns the process-wide resolver.
func Default() *Resolver {
	return defaultResolver
}

// Resolve returns the metadata for the given entity value or type through
// the process-wide resolver.
func Resolve(entity any) (*EntityMetadata, error) {
	return defaultResolver.Resolve(entity)
}

// ResolveField resolves a typed field reference through the process-wide
// resolver.
func ResolveField(entity any, field string) (*FieldRef, error) {
	return defaultResolver.ResolveField(entity, field)
}

// ResetMetadata clears the process-wide metadata cache. It exists for tests
// that redefine entity types or naming configuration; production code never
// needs it.
func ResetMetadata() {
	defaultResolverMu.Lock()
	defer defaultResolverMu.Unlock()
	defaultResolver.mu.Lock()
	defaultResolver.metas = make(map[reflect.Type]*EntityMetadata)
	defaultResolver.fields = make(map[fieldKey]*FieldRef)
	defaultResolver.mu.Unlock()
}

// entityType normalizes an entity reference (value, pointer, or
// reflect.Type) to its struct type.
func entityType(entity any) (reflect.Type, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity cannot be nil")
	}
	t, ok := entity.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(entity)
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct, pointer to struct, or slice of structs, got %s", t.Kind())
	}
	return t, nil
}

// Resolve returns the metadata for an entity, building and caching it on
// first use.
func (r *Resolver) Resolve(entity any) (*EntityMetadata, error) {
	t, err := entityType(entity)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	meta, ok := r.metas[t]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	built, err := buildMetadata(t, r.transform)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have built the same entry; the first stored
	// instance wins so every caller observes one immutable value.
	if meta, ok = r.metas[t]; ok {
		return meta, nil
	}
	r.metas[t] = built
	r.logger.Debug("built entity metadata",
		zap.String("entity", t.Name()),
		zap.String("table", built.Table),
		zap.Int("columns", len(built.columns)))
	return built, nil
}

// ResolveField maps a (type, field) pair to its column and table. Derivation
// follows a strict, ordered strategy chain: the explicit `db` tag always
// wins, then an exact name match, then the configured naming transform, then
// a case-insensitive match. The result is cached per (type, field).
func (r *Resolver) ResolveField(entity any, field string) (*FieldRef, error) {
	t, err := entityType(entity)
	if err != nil {
		return nil, err
	}

	key := fieldKey{t: t, field: field}
	r.mu.RLock()
	ref, ok := r.fields[key]
	r.mu.RUnlock()
	if ok {
		return ref, nil
	}

	meta, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}

	column, declared, err := r.deriveColumn(meta, field)
	if err != nil {
		return nil, err
	}

	built := &FieldRef{
		Entity:   t,
		Field:    field,
		Declared: declared,
		Column:   column,
		Table:    meta.Table,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok = r.fields[key]; ok {
		return ref, nil
	}
	r.fields[key] = built
	return built, nil
}

// deriveColumn runs the column-name strategy chain for one field reference.
func (r *Resolver) deriveColumn(meta *EntityMetadata, field string) (string, reflect.Type, error) {
	// Explicit metadata first: a Go field of that name with a db tag or a
	// derived column already recorded on the entity.
	for _, c := range meta.columns {
		if c.Field == field {
			return c.Name, meta.Type.Field(c.Index).Type, nil
		}
	}

	candidates := make([]string, len(meta.columns))
	for i, c := range meta.columns {
		candidates[i] = c.Name
	}

	chain := []columnStrategy{
		exactMatch,
		transformMatch(r.transform),
		caseInsensitiveMatch,
	}
	for _, strategy := range chain {
		if name, ok := strategy(field, candidates); ok {
			col, _ := meta.ColumnByName(name)
			return name, meta.Type.Field(col.Index).Type, nil
		}
	}
	return "", nil, fmt.Errorf("no column found for field %q on entity %s", field, meta.Type.Name())
}

package persistence

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/schema"
)

// MappingPolicy governs what happens when a result column has no mapping on
// the target entity.
type MappingPolicy int

const (
	// MappingSkip silently drops unmapped columns. The default.
	MappingSkip MappingPolicy = iota
	// MappingWarn drops unmapped columns but logs each occurrence.
	MappingWarn
	// MappingStrict fails the mapping on the first unmapped column.
	MappingStrict
)

// aliasSeparator joins a table alias and a column name in a result label.
// A label of the form alias__column attributes the value to the joined table
// registered under that alias; an unqualified label belongs to the primary
// table.
const aliasSeparator = "__"

// Mapper converts raw result rows into typed values: scalars by coercing the
// single result column, maps by copying every column, and structs by
// reconstructing the object graph across joined tables and collapsing
// duplicate parents afterwards.
type Mapper struct {
	target   reflect.Type // nil: hand rows back as documents
	resolver *schema.Resolver
	aliases  *schema.AliasRegistry
	policy   MappingPolicy
	logger   *zap.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithMappingPolicy sets the unmapped-column policy.
func WithMappingPolicy(p MappingPolicy) MapperOption {
	return func(m *Mapper) { m.policy = p }
}

// WithAliases attaches the alias registry of the originating query context,
// required to attribute alias-qualified result labels.
func WithAliases(r *schema.AliasRegistry) MapperOption {
	return func(m *Mapper) {
		if r != nil {
			m.aliases = r
		}
	}
}

// WithResolver overrides the metadata resolver.
func WithResolver(r *schema.Resolver) MapperOption {
	return func(m *Mapper) {
		if r != nil {
			m.resolver = r
		}
	}
}

// WithMapperLogger attaches a logger.
func WithMapperLogger(l *zap.Logger) MapperOption {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMapper creates a mapper for the given target. The target may be nil
// (raw documents), a scalar prototype, a map, or a struct / pointer-to-struct
// prototype for graph reconstruction.
func NewMapper(target any, opts ...MapperOption) *Mapper {
	m := &Mapper{
		resolver: schema.Default(),
		aliases:  schema.NewAliasRegistry(),
		logger:   zap.NewNop(),
	}
	if target != nil {
		t, ok := target.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(target)
		}
		for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		m.target = t
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MapRows converts a full result set. Struct targets get the row-set merge
// pass collapsing duplicate parents produced by one-to-many joins.
func (m *Mapper) MapRows(rows []schema.Document) ([]any, error) {
	if m.target == nil || m.target.Kind() == reflect.Map {
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}

	if m.target.Kind() != reflect.Struct || m.target == reflect.TypeOf(time.Time{}) {
		out := make([]any, 0, len(rows))
		for _, r := range rows {
			v, err := m.mapScalar(r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	meta, err := m.resolver.Resolve(m.target)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(rows))
	for _, r := range rows {
		v, err := m.mapStructRow(meta, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return m.mergeRows(meta, out)
}

// mapScalar coerces the single result column of a row to the target type.
func (m *Mapper) mapScalar(row schema.Document) (any, error) {
	if len(row) != 1 {
		return nil, fmt.Errorf("scalar target %s requires a single-column result, got %d columns", m.target, len(row))
	}
	for _, v := range row {
		cv, err := coerce(v, m.target)
		if err != nil {
			return nil, err
		}
		return cv.Interface(), nil
	}
	return nil, nil
}

// partition splits one row into per-alias documents. Unqualified labels go
// to the primary partition under the empty alias.
func partition(row schema.Document) map[string]schema.Document {
	parts := make(map[string]schema.Document)
	for label, v := range row {
		alias, column := "", label
		if i := strings.Index(label, aliasSeparator); i > 0 {
			alias, column = label[:i], label[i+len(aliasSeparator):]
		}
		p, ok := parts[alias]
		if !ok {
			p = make(schema.Document)
			parts[alias] = p
		}
		p[column] = v
	}
	return parts
}

type guardKey struct {
	table string
	pk    string
}

// mapStructRow reconstructs one object graph from one result row.
func (m *Mapper) mapStructRow(meta *schema.EntityMetadata, row schema.Document) (any, error) {
	parts := partition(row)

	// Fold the primary table's aliased partition into the unqualified one,
	// so both label styles reach the root entity.
	if alias, ok := m.aliases.AliasFor(meta.Table); ok {
		if p, ok := parts[alias]; ok {
			root, exists := parts[""]
			if !exists {
				root = make(schema.Document)
				parts[""] = root
			}
			for k, v := range p {
				if _, dup := root[k]; !dup {
					root[k] = v
				}
			}
		}
	}

	root, ok := parts[""]
	if !ok {
		root = make(schema.Document)
	}
	guard := make(map[guardKey]bool)
	return m.buildEntity(meta, root, parts, guard)
}

// buildEntity populates one entity from its partition and recursively builds
// its relations from the partitions registered under other aliases. The
// guard tracks (table, primary-key) pairs in progress within this row; on
// re-entry a stub carrying only the primary key is returned instead of
// recursing.
func (m *Mapper) buildEntity(meta *schema.EntityMetadata, doc schema.Document, parts map[string]schema.Document, guard map[guardKey]bool) (any, error) {
	ptr := reflect.New(meta.Type)
	v := ptr.Elem()

	for label, raw := range doc {
		col, ok := meta.ColumnByName(label)
		if !ok {
			switch m.policy {
			case MappingStrict:
				return nil, &MappingError{Column: label, Target: meta.Type.Name()}
			case MappingWarn:
				m.logger.Warn("skipping unmapped result column",
					zap.String("column", label),
					zap.String("target", meta.Type.Name()))
			}
			continue
		}
		cv, err := coerce(raw, meta.Type.Field(col.Index).Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", label, err)
		}
		v.Field(col.Index).Set(cv)
	}

	key, hasKey := m.entityKey(meta, v)
	if hasKey {
		gk := guardKey{table: meta.Table, pk: key}
		if guard[gk] {
			// Cycle: hand back a minimal stub carrying only the key.
			stub := reflect.New(meta.Type)
			if pk, err := meta.PrimaryKeyColumn(); err == nil {
				stub.Elem().Field(pk.Index).Set(v.Field(pk.Index))
			}
			return stub.Interface(), nil
		}
		guard[gk] = true
		defer delete(guard, gk)
	}

	for _, rel := range meta.Relations() {
		relMeta, err := m.resolver.Resolve(rel.Elem)
		if err != nil {
			return nil, err
		}
		alias, ok := m.aliases.AliasFor(relMeta.Table)
		if !ok {
			continue
		}
		part, ok := parts[alias]
		if !ok {
			continue
		}
		if !m.partitionPresent(relMeta, part) {
			continue
		}
		child, err := m.buildEntity(relMeta, part, parts, guard)
		if err != nil {
			return nil, err
		}
		field := v.Field(rel.Index)
		switch rel.Kind {
		case schema.RelationOne:
			if field.Kind() == reflect.Pointer {
				field.Set(reflect.ValueOf(child))
			} else {
				field.Set(reflect.ValueOf(child).Elem())
			}
		case schema.RelationMany:
			elem := reflect.ValueOf(child)
			if field.Type().Elem().Kind() != reflect.Pointer {
				elem = elem.Elem()
			}
			field.Set(reflect.Append(field, elem))
		}
	}

	return ptr.Interface(), nil
}

// partitionPresent reports whether the joined partition carries an actual
// row, i.e. its primary key (or any column) is non-nil. Left joins with no
// match produce all-nil partitions that must not materialize children.
func (m *Mapper) partitionPresent(meta *schema.EntityMetadata, part schema.Document) bool {
	if pk, err := meta.PrimaryKeyColumn(); err == nil {
		v, ok := part[pk.Name]
		return ok && v != nil
	}
	for _, v := range part {
		if v != nil {
			return true
		}
	}
	return false
}

// entityKey renders an entity's primary-key value as a normalized string
// key, reporting false when the entity has no key or the key is unset.
func (m *Mapper) entityKey(meta *schema.EntityMetadata, v reflect.Value) (string, bool) {
	pk, err := meta.PrimaryKeyColumn()
	if err != nil {
		return "", false
	}
	f := v.Field(pk.Index)
	if f.IsZero() {
		return "", false
	}
	return fmt.Sprintf("%v", f.Interface()), true
}

// mergeRows collapses duplicate parents sharing a primary key into one
// instance whose collection relations are the deduplicated union of both
// observations and whose scalar fields take the last non-null value seen.
// That last rule is deliberate: a stale join duplicate and a legitimately
// newer value are indistinguishable here, and the engine preserves the
// source system's behavior rather than guessing.
func (m *Mapper) mergeRows(meta *schema.EntityMetadata, items []any) ([]any, error) {
	if meta.PrimaryKey == "" {
		return items, nil
	}

	order := make([]string, 0, len(items))
	byKey := make(map[string]reflect.Value)
	var out []any

	for _, item := range items {
		v := reflect.ValueOf(item).Elem()
		key, ok := m.entityKey(meta, v)
		if !ok {
			out = append(out, item)
			continue
		}
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = v
			order = append(order, key)
			continue
		}
		if err := m.mergeInto(meta, existing, v); err != nil {
			return nil, err
		}
	}

	merged := make([]any, 0, len(order)+len(out))
	for _, key := range order {
		merged = append(merged, byKey[key].Addr().Interface())
	}
	return append(merged, out...), nil
}

// mergeInto merges a later observation of an entity into the retained one.
func (m *Mapper) mergeInto(meta *schema.EntityMetadata, dst, src reflect.Value) error {
	for _, col := range meta.Columns() {
		sf := src.Field(col.Index)
		if !sf.IsZero() {
			dst.Field(col.Index).Set(sf)
		}
	}

	for _, rel := range meta.Relations() {
		sf := src.Field(rel.Index)
		df := dst.Field(rel.Index)
		switch rel.Kind {
		case schema.RelationOne:
			if !sf.IsZero() {
				df.Set(sf)
			}
		case schema.RelationMany:
			relMeta, err := m.resolver.Resolve(rel.Elem)
			if err != nil {
				return err
			}
			merged, err := m.unionChildren(relMeta, df, sf)
			if err != nil {
				return err
			}
			df.Set(merged)
		}
	}
	return nil
}

// unionChildren appends the children of src to dst, deduplicating by child
// primary key.
func (m *Mapper) unionChildren(meta *schema.EntityMetadata, dst, src reflect.Value) (reflect.Value, error) {
	if src.Len() == 0 {
		return dst, nil
	}
	pk, err := meta.PrimaryKeyColumn()
	if err != nil {
		return dst, &ConfigError{Entity: meta.Type.Name(), Detail: "merging joined collections requires a primary key"}
	}

	seen := make(map[string]bool)
	childKey := func(c reflect.Value) (string, bool) {
		for c.Kind() == reflect.Pointer {
			c = c.Elem()
		}
		f := c.Field(pk.Index)
		if f.IsZero() {
			return "", false
		}
		return fmt.Sprintf("%v", f.Interface()), true
	}

	for i := 0; i < dst.Len(); i++ {
		if k, ok := childKey(dst.Index(i)); ok {
			seen[k] = true
		}
	}
	out := dst
	for i := 0; i < src.Len(); i++ {
		c := src.Index(i)
		if k, ok := childKey(c); ok {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = reflect.Append(out, c)
	}
	return out, nil
}

// coerce converts a raw backend value to the given Go type, following the
// usual driver conventions: int64 for integers, float64 for reals, []byte
// for text, integers standing in for booleans.
func coerce(raw any, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		if raw == nil {
			return reflect.Zero(t), nil
		}
		inner, err := coerce(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if raw == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == t {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) && t != reflect.TypeOf(time.Time{}) && rv.Kind() != reflect.Slice {
		switch t.Kind() {
		case reflect.Bool:
			// Convertible does not cover numeric-to-bool; handled below.
		case reflect.String:
			// Converting an integer to a string encodes it as a rune, not
			// as decimal text; only string-kinded values pass through.
			if rv.Kind() == reflect.String {
				return rv.Convert(t), nil
			}
		default:
			return rv.Convert(t), nil
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			return reflect.ValueOf(v), nil
		case int64:
			return reflect.ValueOf(v != 0), nil
		case float64:
			return reflect.ValueOf(v != 0), nil
		}
	case reflect.String:
		if b, ok := raw.([]byte); ok {
			return reflect.ValueOf(string(b)), nil
		}
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			switch v := raw.(type) {
			case time.Time:
				return reflect.ValueOf(v), nil
			case string:
				ts, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("cannot parse %q as time: %w", v, err)
				}
				return reflect.ValueOf(ts), nil
			case []byte:
				ts, err := time.Parse(time.RFC3339, string(v))
				if err != nil {
					return reflect.Value{}, fmt.Errorf("cannot parse %q as time: %w", v, err)
				}
				return reflect.ValueOf(ts), nil
			}
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if s, ok := raw.(string); ok {
				return reflect.ValueOf([]byte(s)), nil
			}
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot coerce %T to %s", raw, t)
}

package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// RelationKind distinguishes single-valued from collection-valued relations.
type RelationKind string

const (
	RelationOne  RelationKind = "one"
	RelationMany RelationKind = "many"
)

// Column describes one persistable column of an entity.
type Column struct {
	Name      string // physical column name
	Field     string // Go field name
	Index     int    // struct field index
	Generated bool   // database-generated identity column
	ReadOnly  bool   // excluded from inserts and updates
}

// Relation describes a relation-valued field of an entity. Relation fields
// are never part of the persistable column set; they are populated by the
// row reconstructor from joined result columns.
type Relation struct {
	Field string
	Index int
	Kind  RelationKind
	Elem  reflect.Type // element struct type of the related entity
}

// EntityMetadata is the immutable physical description of one entity type.
// It is built once per type on first use and cached for the process.
type EntityMetadata struct {
	Type       reflect.Type
	Table      string
	PrimaryKey string // column name of the primary key, "" when absent
	pkIndex    int

	columns   []Column
	byColumn  map[string]int // column name -> index into columns
	relations []Relation
}

// Tabler lets an entity override its derived table name.
type Tabler interface {
	TableName() string
}

// Columns returns the ordered persistable columns, excluding relation-valued,
// transient and read-only fields but including generated identity columns.
// This is the column set used for read paths.
func (m *EntityMetadata) Columns() []Column {
	return m.columns
}

// InsertableColumns returns the ordered columns usable in an insert: the
// persistable set minus database-generated identity columns.
func (m *EntityMetadata) InsertableColumns() []Column {
	out := make([]Column, 0, len(m.columns))
	for _, c := range m.columns {
		if c.Generated || c.ReadOnly {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Relations returns the relation-valued fields of the entity.
func (m *EntityMetadata) Relations() []Relation {
	return m.relations
}

// ColumnByName looks up a persistable column by its physical name.
func (m *EntityMetadata) ColumnByName(name string) (Column, bool) {
	i, ok := m.byColumn[name]
	if !ok {
		return Column{}, false
	}
	return m.columns[i], true
}

// PrimaryKeyColumn returns the primary-key column. Absence of a primary key
// is tolerated at registration; it only becomes an error when an operation
// that depends on one asks for it.
func (m *EntityMetadata) PrimaryKeyColumn() (Column, error) {
	if m.PrimaryKey == "" {
		return Column{}, fmt.Errorf("entity %s has no primary key column", m.Type.Name())
	}
	return m.columns[m.byColumn[m.PrimaryKey]], nil
}

// PrimaryKeyValue extracts the primary-key value from an instance of the
// entity. The instance may be a struct or a pointer to one.
func (m *EntityMetadata) PrimaryKeyValue(entity any) (any, error) {
	pk, err := m.PrimaryKeyColumn()
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot read primary key from nil %s", m.Type.Name())
		}
		v = v.Elem()
	}
	if v.Type() != m.Type {
		return nil, fmt.Errorf("expected %s, got %s", m.Type.Name(), v.Type().Name())
	}
	return v.Field(pk.Index).Interface(), nil
}

// isScalarType reports whether a type maps to a single database column.
func isScalarType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeOf(time.Time{}) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

// buildMetadata inspects a struct type and produces its metadata. Column
// names come from the `db` tag when present; otherwise the resolver's naming
// transform derives them. Tag options: pk, generated, readonly. A field
// tagged `db:"-"` is transient.
func buildMetadata(t reflect.Type, transform NameTransform) (*EntityMetadata, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct type, got %s", t.Kind())
	}

	meta := &EntityMetadata{
		Type:     t,
		Table:    deriveTableName(t, transform),
		byColumn: make(map[string]int),
		pkIndex:  -1,
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		opts := parts[1:]

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		// Relation-valued fields: struct or slice-of-struct that is not a
		// scalar column type.
		if !isScalarType(f.Type) {
			switch ft.Kind() {
			case reflect.Struct:
				meta.relations = append(meta.relations, Relation{
					Field: f.Name, Index: i, Kind: RelationOne, Elem: ft,
				})
				continue
			case reflect.Slice:
				elem := ft.Elem()
				for elem.Kind() == reflect.Pointer {
					elem = elem.Elem()
				}
				if elem.Kind() == reflect.Struct && elem != reflect.TypeOf(time.Time{}) {
					meta.relations = append(meta.relations, Relation{
						Field: f.Name, Index: i, Kind: RelationMany, Elem: elem,
					})
					continue
				}
			}
			return nil, fmt.Errorf("field %s.%s has unsupported column type %s", t.Name(), f.Name, f.Type)
		}

		if name == "" {
			name = transform(f.Name)
		}
		col := Column{Name: name, Field: f.Name, Index: i}
		for _, o := range opts {
			switch o {
			case "pk":
				meta.PrimaryKey = name
				meta.pkIndex = i
			case "generated":
				col.Generated = true
			case "readonly":
				col.ReadOnly = true
			}
		}
		if _, dup := meta.byColumn[name]; dup {
			return nil, fmt.Errorf("entity %s maps column %q twice", t.Name(), name)
		}
		meta.byColumn[name] = len(meta.columns)
		meta.columns = append(meta.columns, col)
	}

	if len(meta.columns) == 0 {
		return nil, fmt.Errorf("entity %s has no persistable columns", t.Name())
	}

	// Conventional primary key when none is tagged.
	if meta.PrimaryKey == "" {
		if _, ok := meta.byColumn["id"]; ok {
			meta.PrimaryKey = "id"
			meta.pkIndex = meta.columns[meta.byColumn["id"]].Index
		}
	}
	return meta, nil
}

// deriveTableName follows the table-name precedence chain: the Tabler
// interface first, then the naming transform of the type name.
func deriveTableName(t reflect.Type, transform NameTransform) string {
	if t.Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return reflect.New(t).Elem().Interface().(Tabler).TableName()
	}
	if reflect.PointerTo(t).Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return reflect.New(t).Interface().(Tabler).TableName()
	}
	return transform(t.Name())
}

package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	ID        int64     `db:"id,pk,generated"`
	FullName  string    `db:"full_name"`
	Email     string    // derived: email
	CreatedAt time.Time // derived: created_at
	Secret    string    `db:"-"`
	Version   int64     `db:"version,readonly"`
	Orders    []order
	Profile   *profile
}

type order struct {
	ID         int64 `db:"id,pk,generated"`
	CustomerID int64 `db:"customer_id"`
}

type profile struct {
	ID  int64  `db:"id,pk"`
	Bio string `db:"bio"`
}

type legacyRecord struct {
	Code string `db:"code"`
}

func (legacyRecord) TableName() string { return "legacy_tbl" }

func TestResolveMetadata(t *testing.T) {
	r := NewResolver()
	meta, err := r.Resolve(customer{})
	require.NoError(t, err)

	assert.Equal(t, "customer", meta.Table)
	assert.Equal(t, "id", meta.PrimaryKey)

	names := make([]string, 0)
	for _, c := range meta.Columns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "full_name", "email", "created_at", "version"}, names)

	insertable := meta.InsertableColumns()
	for _, c := range insertable {
		assert.NotEqual(t, "id", c.Name, "generated identity excluded from inserts")
		assert.NotEqual(t, "version", c.Name, "readonly column excluded from inserts")
	}

	rels := meta.Relations()
	require.Len(t, rels, 2)
	assert.Equal(t, RelationMany, rels[0].Kind)
	assert.Equal(t, "Orders", rels[0].Field)
	assert.Equal(t, RelationOne, rels[1].Kind)
	assert.Equal(t, "Profile", rels[1].Field)
}

func TestResolveSameInstanceFromCache(t *testing.T) {
	r := NewResolver()
	first, err := r.Resolve(customer{})
	require.NoError(t, err)
	second, err := r.Resolve(&customer{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	third, err := r.Resolve([]customer{})
	require.NoError(t, err)
	assert.Same(t, first, third, "slices normalize to their element type")
}

func TestTablerOverride(t *testing.T) {
	meta, err := NewResolver().Resolve(legacyRecord{})
	require.NoError(t, err)
	assert.Equal(t, "legacy_tbl", meta.Table)
}

func TestResolveFieldStrategyChain(t *testing.T) {
	r := NewResolver()

	// Explicit tag wins.
	ref, err := r.ResolveField(customer{}, "FullName")
	require.NoError(t, err)
	assert.Equal(t, "full_name", ref.Column)
	assert.Equal(t, "customer", ref.Table)

	// Exact column-name match.
	ref, err = r.ResolveField(customer{}, "email")
	require.NoError(t, err)
	assert.Equal(t, "email", ref.Column)

	// Naming transform.
	ref, err = r.ResolveField(customer{}, "CreatedAt")
	require.NoError(t, err)
	assert.Equal(t, "created_at", ref.Column)

	// Case-insensitive fallback.
	ref, err = r.ResolveField(customer{}, "EMAIL")
	require.NoError(t, err)
	assert.Equal(t, "email", ref.Column)

	_, err = r.ResolveField(customer{}, "Nope")
	assert.Error(t, err)
}

func TestTransientFieldIsNotResolvable(t *testing.T) {
	r := NewResolver()
	meta, err := r.Resolve(customer{})
	require.NoError(t, err)
	_, ok := meta.ColumnByName("secret")
	assert.False(t, ok)
}

func TestPrimaryKeyDeferredError(t *testing.T) {
	type keyless struct {
		Label string `db:"label"`
	}
	meta, err := NewResolver().Resolve(keyless{})
	require.NoError(t, err, "a missing primary key is tolerated at registration")

	_, err = meta.PrimaryKeyColumn()
	assert.Error(t, err, "it fails only when an operation depends on it")
}

func TestConventionalPrimaryKey(t *testing.T) {
	type plain struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	meta, err := NewResolver().Resolve(plain{})
	require.NoError(t, err)
	assert.Equal(t, "id", meta.PrimaryKey)

	v, err := meta.PrimaryKeyValue(plain{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"ID":        "id",
		"UserID":    "user_id",
		"CreatedAt": "created_at",
		"HTTPCode":  "http_code",
		"name":      "name",
	}
	for in, want := range cases {
		assert.Equal(t, want, SnakeCase(in), "SnakeCase(%q)", in)
	}
}

func TestAliasRegistry(t *testing.T) {
	reg := NewAliasRegistry()

	a, err := reg.Register("user", "")
	require.NoError(t, err)
	b, err := reg.Register("post", "")
	require.NoError(t, err)
	assert.Equal(t, "t0", a)
	assert.Equal(t, "t1", b)

	again, err := reg.Register("user", "")
	require.NoError(t, err)
	assert.Equal(t, "t2", again, "registering a table twice mints a second alias")

	rebound, err := reg.Register("user", "t0")
	require.NoError(t, err)
	assert.Equal(t, "t0", rebound, "re-binding an existing pair is a no-op")

	explicit, err := reg.Register("audit", "au")
	require.NoError(t, err)
	assert.Equal(t, "au", explicit)

	_, err = reg.Register("audit", "t1")
	assert.Error(t, err, "an alias held by another table cannot be claimed")

	table, ok := reg.TableFor("t1")
	require.True(t, ok)
	assert.Equal(t, "post", table)

	alias, ok := reg.AliasFor("user")
	require.True(t, ok)
	assert.Equal(t, "t0", alias, "the first alias of a table wins for attribution")

	assert.Len(t, reg.Aliases(), 4)
}

package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishultan/go-strata/core/persistence"
	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

func seededPipeline(t *testing.T) (*persistence.Pipeline, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	resolver := schema.NewResolver()
	builder := NewBuilder(WithBuilderResolver(resolver))
	executor := NewExecutor(store)
	pipeline := persistence.NewPipeline(builder, executor, persistence.WithPipelineResolver(resolver))

	_, err := pipeline.Insert(context.Background(), user{}, []schema.Document{
		{"id": int64(1), "name": "ada", "status": "active", "age": int64(36)},
		{"id": int64(2), "name": "grace", "status": "active", "age": int64(45)},
		{"id": int64(3), "name": "edsger", "status": "inactive", "age": int64(72)},
	})
	require.NoError(t, err)
	return pipeline, store
}

func TestDocumentListFilterSortPage(t *testing.T) {
	pipeline, _ := seededPipeline(t)
	ctx := context.Background()

	qc := query.New(user{}).
		Select().
		Where(query.Eq("Status", "active")).
		OrderByDesc("Age")

	out, err := pipeline.List(ctx, qc, &user{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "grace", out[0].(*user).Name)
	assert.Equal(t, "ada", out[1].(*user).Name)

	paged := query.New(user{}).Select().OrderByAsc("ID").Page(1, 1)
	out, err = pipeline.List(ctx, paged, &user{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].(*user).ID)
}

func TestDocumentProjection(t *testing.T) {
	pipeline, _ := seededPipeline(t)

	qc := query.New(user{}).Select("Name").Where(query.Eq("ID", 1))
	out, err := pipeline.List(context.Background(), qc, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, schema.Document{"name": "ada"}, out[0], "projection reduces each document to the listed fields")
}

func TestDocumentCount(t *testing.T) {
	pipeline, _ := seededPipeline(t)

	count, err := pipeline.Count(context.Background(),
		query.New(user{}).Select().Where(query.Gt("Age", 40)).OrderByAsc("Name").Page(0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "count ignores ordering and pagination")
}

func TestDocumentDelete(t *testing.T) {
	pipeline, _ := seededPipeline(t)
	ctx := context.Background()

	removed, err := pipeline.Delete(ctx, user{}, query.Eq("Status", "inactive"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := pipeline.Count(ctx, query.New(user{}).Select())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDocumentUpdateCapabilityError(t *testing.T) {
	pipeline, _ := seededPipeline(t)

	_, err := pipeline.Update(context.Background(), user{},
		schema.Document{"name": "z"}, query.Eq("ID", 1))
	var capErr *persistence.CapabilityError
	require.ErrorAs(t, err, &capErr)
}

func TestDocumentStream(t *testing.T) {
	pipeline, _ := seededPipeline(t)

	stream := pipeline.Stream(query.New(user{}).Select().OrderByAsc("ID"), &user{}, 2)
	defer stream.Close()

	var names []string
	err := stream.Drain(context.Background(), func(item any) error {
		names = append(names, item.(*user).Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "grace", "edsger"}, names)
}

// fixedStore hands out its own backing slice from List, the way a store
// backed by an external driver might.
type fixedStore struct {
	docs []schema.Document
}

func (s *fixedStore) List(ctx context.Context, collection string) ([]schema.Document, error) {
	return s.docs, nil
}

func (s *fixedStore) Insert(ctx context.Context, collection string, docs []schema.Document) (int64, error) {
	return 0, nil
}

func (s *fixedStore) Delete(ctx context.Context, collection string, match func(schema.Document) (bool, error)) (int64, error) {
	return 0, nil
}

func TestExecutorLeavesStoreSliceIntact(t *testing.T) {
	store := &fixedStore{docs: []schema.Document{
		{"id": int64(1), "name": "edsger", "status": "inactive", "age": int64(72)},
		{"id": int64(2), "name": "ada", "status": "active", "age": int64(36)},
		{"id": int64(3), "name": "grace", "status": "active", "age": int64(45)},
	}}
	builder := NewBuilder(WithBuilderResolver(schema.NewResolver()))
	executor := NewExecutor(store)

	qc := query.New(user{}).Select().Where(query.Eq("Status", "active")).OrderByDesc("Age")
	rendered, err := builder.BuildSelect(qc)
	require.NoError(t, err)

	out, err := executor.ExecuteList(context.Background(), rendered, persistence.NewMapper(nil))
	require.NoError(t, err)
	require.Len(t, out, 2)

	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, want, store.docs[i]["id"], "filtering and sorting never touch the store's slice")
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := schema.Document{"id": int64(1), "name": "ada"}
	_, err := store.Insert(ctx, "user", []schema.Document{original})
	require.NoError(t, err)

	original["name"] = "mutated"
	docs, err := store.List(ctx, "user")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ada", docs[0]["name"], "the store never shares documents with callers")

	docs[0]["name"] = "mutated again"
	docs, err = store.List(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "ada", docs[0]["name"])
}

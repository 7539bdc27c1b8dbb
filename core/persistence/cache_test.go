package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishultan/go-strata/core/query"
)

// fakeExecutor counts calls and serves canned results.
type fakeExecutor struct {
	lists  int
	counts int
	writes int

	listResult  []any
	countResult int64
	writeResult int64
	err         error
}

func (f *fakeExecutor) ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *Mapper) ([]any, error) {
	f.lists++
	return f.listResult, f.err
}

func (f *fakeExecutor) ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error) {
	f.counts++
	return f.countResult, f.err
}

func (f *fakeExecutor) ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error) {
	f.writes++
	return f.writeResult, f.err
}

func listRendered(entity, text string, params ...any) *query.Rendered {
	return &query.Rendered{Kind: query.KindList, Entity: entity, Text: text, Params: params}
}

func TestCacheServesRepeatedList(t *testing.T) {
	fake := &fakeExecutor{listResult: []any{"row"}}
	cached := NewCachingExecutor(fake, DefaultCacheOptions(), nil)
	ctx := context.Background()

	rendered := listRendered("user", "SELECT * FROM user WHERE id = ?", int64(1))

	first, err := cached.ExecuteList(ctx, rendered, nil)
	require.NoError(t, err)
	second, err := cached.ExecuteList(ctx, rendered, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.lists, "the repeat must be served from cache")
}

func TestCacheKeyCoversParams(t *testing.T) {
	fake := &fakeExecutor{listResult: []any{"row"}}
	cached := NewCachingExecutor(fake, DefaultCacheOptions(), nil)
	ctx := context.Background()

	_, err := cached.ExecuteList(ctx, listRendered("user", "SELECT * FROM user WHERE id = ?", int64(1)), nil)
	require.NoError(t, err)
	_, err = cached.ExecuteList(ctx, listRendered("user", "SELECT * FROM user WHERE id = ?", int64(2)), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, fake.lists, "different parameters are different keys")
}

func TestCacheZeroTTLDisables(t *testing.T) {
	fake := &fakeExecutor{countResult: 5}
	cached := NewCachingExecutor(fake, CacheOptions{CountTTL: 0}, nil)
	ctx := context.Background()

	rendered := &query.Rendered{Kind: query.KindCount, Entity: "user", Text: "SELECT COUNT(*) FROM user"}
	_, err := cached.ExecuteCount(ctx, rendered)
	require.NoError(t, err)
	_, err = cached.ExecuteCount(ctx, rendered)
	require.NoError(t, err)

	assert.Equal(t, 2, fake.counts)
}

func TestCacheFailuresAreNotCached(t *testing.T) {
	fake := &fakeExecutor{err: fmt.Errorf("boom")}
	cached := NewCachingExecutor(fake, DefaultCacheOptions(), nil)
	ctx := context.Background()

	rendered := listRendered("user", "SELECT * FROM user")
	_, err := cached.ExecuteList(ctx, rendered, nil)
	require.Error(t, err)

	fake.err = nil
	fake.listResult = []any{"ok"}
	out, err := cached.ExecuteList(ctx, rendered, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"ok"}, out)
	assert.Equal(t, 2, fake.lists)
}

func TestCacheWriteInvalidatesEntity(t *testing.T) {
	fake := &fakeExecutor{listResult: []any{"row"}, writeResult: 1}
	cached := NewCachingExecutor(fake, DefaultCacheOptions(), nil)
	ctx := context.Background()

	userQuery := listRendered("user", "SELECT * FROM user")
	postQuery := listRendered("post", "SELECT * FROM post")

	_, err := cached.ExecuteList(ctx, userQuery, nil)
	require.NoError(t, err)
	_, err = cached.ExecuteList(ctx, postQuery, nil)
	require.NoError(t, err)

	_, err = cached.ExecuteWrite(ctx, &query.Rendered{Kind: query.KindUpdate, Entity: "user", Text: "UPDATE user SET name = ?"})
	require.NoError(t, err)

	_, err = cached.ExecuteList(ctx, userQuery, nil)
	require.NoError(t, err)
	_, err = cached.ExecuteList(ctx, postQuery, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, fake.lists, "the write invalidates user results only")
}

func TestCacheExpiry(t *testing.T) {
	fake := &fakeExecutor{listResult: []any{"row"}}
	cached := NewCachingExecutor(fake, CacheOptions{ListTTL: time.Nanosecond}, nil)
	ctx := context.Background()

	rendered := listRendered("user", "SELECT * FROM user")
	_, err := cached.ExecuteList(ctx, rendered, nil)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = cached.ExecuteList(ctx, rendered, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.lists)
}

func TestCacheEvictionBound(t *testing.T) {
	fake := &fakeExecutor{listResult: []any{"row"}}
	cached := NewCachingExecutor(fake, CacheOptions{ListTTL: time.Minute, MaxEntries: 2}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := cached.ExecuteList(ctx, listRendered("user", fmt.Sprintf("SELECT %d", i)), nil)
		require.NoError(t, err)
	}
	cached.mu.RLock()
	defer cached.mu.RUnlock()
	assert.LessOrEqual(t, len(cached.entries), 3)
}

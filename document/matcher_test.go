package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishultan/go-strata/core/schema"
)

func mustMatch(t *testing.T, filter map[string]any, doc schema.Document) bool {
	t.Helper()
	ok, err := Match(filter, doc)
	require.NoError(t, err)
	return ok
}

func TestMatchOperators(t *testing.T) {
	doc := schema.Document{"name": "ada", "age": int64(36), "email": nil}

	cases := []struct {
		name   string
		filter map[string]any
		want   bool
	}{
		{"eq", map[string]any{"name": map[string]any{"$eq": "ada"}}, true},
		{"eq mismatch", map[string]any{"name": map[string]any{"$eq": "bob"}}, false},
		{"eq numeric widths", map[string]any{"age": map[string]any{"$eq": 36}}, true},
		{"ne", map[string]any{"name": map[string]any{"$ne": "bob"}}, true},
		{"gt", map[string]any{"age": map[string]any{"$gt": 30}}, true},
		{"le", map[string]any{"age": map[string]any{"$le": 35}}, false},
		{"string order", map[string]any{"name": map[string]any{"$lt": "bob"}}, true},
		{"between", map[string]any{"age": map[string]any{"$between": []any{30, 40}}}, true},
		{"between outside", map[string]any{"age": map[string]any{"$between": []any{40, 50}}}, false},
		{"in", map[string]any{"name": map[string]any{"$in": []any{"ada", "bob"}}}, true},
		{"not in", map[string]any{"name": map[string]any{"$notIn": []any{"bob"}}}, true},
		{"is null", map[string]any{"email": map[string]any{"$isNull": true}}, true},
		{"is not null", map[string]any{"name": map[string]any{"$isNotNull": true}}, true},
		{"like prefix", map[string]any{"name": map[string]any{"$like": "a%"}}, true},
		{"like single char", map[string]any{"name": map[string]any{"$like": "ad_"}}, true},
		{"like mismatch", map[string]any{"name": map[string]any{"$like": "b%"}}, false},
		{"bare value shorthand", map[string]any{"name": "ada"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mustMatch(t, tc.filter, doc))
		})
	}
}

func TestMatchCombinators(t *testing.T) {
	doc := schema.Document{"a": int64(1), "b": int64(2)}

	and := map[string]any{"$and": []any{
		map[string]any{"a": map[string]any{"$eq": 1}},
		map[string]any{"b": map[string]any{"$eq": 2}},
	}}
	assert.True(t, mustMatch(t, and, doc))

	or := map[string]any{"$or": []any{
		map[string]any{"a": map[string]any{"$eq": 9}},
		map[string]any{"b": map[string]any{"$eq": 2}},
	}}
	assert.True(t, mustMatch(t, or, doc))

	not := map[string]any{"$not": map[string]any{"a": map[string]any{"$eq": 1}}}
	assert.False(t, mustMatch(t, not, doc))

	assert.True(t, mustMatch(t, nil, doc), "an empty filter matches everything")
}

func TestMatchErrors(t *testing.T) {
	doc := schema.Document{"a": int64(1)}

	_, err := Match(map[string]any{"a": map[string]any{"$bogus": 1}}, doc)
	assert.Error(t, err)

	_, err = Match(map[string]any{"$and": "not a list"}, doc)
	assert.Error(t, err)

	_, err = Match(map[string]any{"a": map[string]any{"$between": []any{1}}}, doc)
	assert.Error(t, err)

	_, err = Match(map[string]any{"a": map[string]any{"$gt": "text"}}, doc)
	assert.Error(t, err, "ordering a number against text is refused")
}

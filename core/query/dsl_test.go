package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateConstructors(t *testing.T) {
	p := Eq("status", "active")
	require.NotNil(t, p.Cond)
	assert.Equal(t, "status", p.Cond.Column)
	assert.Equal(t, OperatorEq, p.Cond.Operator)
	assert.Equal(t, "active", p.Cond.Value)

	in := In("id", 1, 2, 3)
	require.NotNil(t, in.Cond)
	assert.Equal(t, OperatorIn, in.Cond.Operator)
	assert.Equal(t, []any{1, 2, 3}, in.Cond.Values)

	between := Between("age", 18, 65)
	require.NotNil(t, between.Cond)
	assert.Equal(t, []any{18, 65}, between.Cond.Values)

	null := IsNull("deleted_at")
	assert.Equal(t, OperatorIsNull, null.Cond.Operator)
}

func TestGroupDropsZeroChildren(t *testing.T) {
	p := And(Predicate{}, Eq("a", 1), Predicate{})
	require.NotNil(t, p.Cond, "single surviving child should be unwrapped")
	assert.Equal(t, "a", p.Cond.Column)

	p = And(Eq("a", 1), Eq("b", 2))
	require.NotNil(t, p.Group)
	assert.Equal(t, CombinatorAnd, p.Group.Combinator)
	assert.Len(t, p.Group.Children, 2)

	assert.True(t, And().IsZero())
	assert.True(t, Or(Predicate{}, Predicate{}).IsZero())
	assert.True(t, Not(Predicate{}).IsZero())
}

func TestNotWrapsChild(t *testing.T) {
	p := Not(Eq("a", 1))
	require.NotNil(t, p.Group)
	assert.Equal(t, CombinatorNot, p.Group.Combinator)
	require.Len(t, p.Group.Children, 1)
	assert.Equal(t, "a", p.Group.Children[0].Cond.Column)
}

func TestCaseBuilder(t *testing.T) {
	item := Case("tier").
		When(Gt("score", 90), "gold").
		When(Gt("score", 50), "silver").
		Else("bronze").
		Item()

	assert.Equal(t, "tier", item.Alias)
	require.NotNil(t, item.Case)
	assert.Len(t, item.Case.Whens, 2)
	assert.Equal(t, "bronze", item.Case.Else)
}

func TestSelectItemConstructors(t *testing.T) {
	count := Count("*", "total")
	require.NotNil(t, count.Aggregate)
	assert.Equal(t, AggCount, count.Aggregate.Fn)
	assert.Equal(t, "*", count.Aggregate.Column)
	assert.False(t, count.Aggregate.Distinct)

	cd := CountDistinct("email", "uniques")
	assert.True(t, cd.Aggregate.Distinct)

	w := Window("row_number", "", "rn", []string{"status"}, OrderItem{Column: "id", Direction: DirectionDesc})
	require.NotNil(t, w.Window)
	assert.Equal(t, []string{"status"}, w.Window.PartitionBy)

	d := DateFormat("created_at", "%Y-%m", "month")
	require.NotNil(t, d.Date)
	assert.Equal(t, "%Y-%m", d.Date.Pattern)
}

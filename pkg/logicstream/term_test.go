package logicstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshVarIdentity(t *testing.T) {
	t.Run("distinct allocations get distinct ids", func(t *testing.T) {
		v1 := Fresh("x")
		v2 := Fresh("x")
		assert.NotEqual(t, v1.ID(), v2.ID())
	})

	t.Run("name has no bearing on identity", func(t *testing.T) {
		v1 := Fresh("q")
		v2 := Fresh("q")
		assert.True(t, v1.IsVar())
		assert.NotEqual(t, v1, v2)
	})

	t.Run("String renders the debug name", func(t *testing.T) {
		v := Fresh("gp")
		assert.Contains(t, v.String(), "gp")
	})
}

func TestAtomEquality(t *testing.T) {
	a := A(42)
	b := A(42)
	c := A(43)
	assert.False(t, a.IsVar())
	assert.Equal(t, a.Value, b.Value)
	assert.NotEqual(t, a.Value, c.Value)
}

func TestLogicListRoundTrip(t *testing.T) {
	list := LogicList(A(1), A(2), A(3))
	cons, ok := list.(*Cons)
	require.True(t, ok)
	assert.Equal(t, A(1).Value, cons.Head.(*Atom).Value)

	tail1 := cons.Tail.(*Cons)
	assert.Equal(t, A(2).Value, tail1.Head.(*Atom).Value)

	tail2 := tail1.Tail.(*Cons)
	assert.Equal(t, A(3).Value, tail2.Head.(*Atom).Value)

	assert.True(t, IsNil(tail2.Tail))
}

func TestEmptyLogicListIsNil(t *testing.T) {
	assert.True(t, IsNil(LogicList()))
	assert.True(t, IsNil(Nil))
}

func TestSequenceString(t *testing.T) {
	s := Seq(A(1), A(2))
	assert.False(t, s.IsVar())
	assert.Equal(t, "[1, 2]", s.String())
}

func TestRecordIsNotVar(t *testing.T) {
	r := Rec(map[string]Term{"name": A("bob")})
	assert.False(t, r.IsVar())
}

func TestRenameReplacesVariablesConsistently(t *testing.T) {
	x := Fresh("x")
	template := Seq(x, x, A(1))

	renamed := Rename(template).(*Sequence)
	rx, ok := renamed.Elems[0].(*Var)
	require.True(t, ok)
	assert.NotEqual(t, x.ID(), rx.ID())
	assert.Equal(t, renamed.Elems[0], renamed.Elems[1], "every occurrence of the same variable must map to the same fresh variable")
	assert.Equal(t, 1, renamed.Elems[2].(*Atom).Value)

	second := Rename(template)
	assert.NotEqual(t, renamed, second, "two renamings of the same template must allocate distinct variables")
}

package logicstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeqoSucceedsWhenDifferent(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return And(Neqo(A(1), A(2)), Eq(q, A("ok")))
	})
	require.Len(t, results, 1)
}

func TestNeqoFailsWhenEqual(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return And(Neqo(A(1), A(1)), Eq(q, A("ok")))
	})
	assert.Empty(t, results)
}

func TestNeqoSuspendsUntilBothGround(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		x := Fresh("x")
		return And(Neqo(x, A(1)), Eq(x, A(2)), Eq(q, A("ok")))
	})
	require.Len(t, results, 1)
}

func TestGroundoAndNonGroundo(t *testing.T) {
	assert.Len(t, Run(0, func(q *Var) Goal { return And(Groundo(A(1)), Eq(q, A("ok"))) }), 1)
	assert.Empty(t, Run(0, func(q *Var) Goal { return Groundo(Fresh("x")) }))

	assert.Empty(t, Run(0, func(q *Var) Goal { return NonGroundo(A(1)) }))
	results := Run(0, func(q *Var) Goal {
		return And(NonGroundo(Fresh("x")), Eq(q, A("ok")))
	})
	require.Len(t, results, 1)
}

func TestUniqueoKeepsFirstPerDistinctValue(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Uniqueo(q, Or(Eq(q, A(1)), Eq(q, A(1)), Eq(q, A(2))))
	})
	assert.ElementsMatch(t, []int{1, 2}, walkedInts(t, results))
}

func TestOnceoIsAliasForOnce(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Onceo(Or(Eq(q, A(1)), Eq(q, A(2))))
	})
	require.Len(t, results, 1)
}

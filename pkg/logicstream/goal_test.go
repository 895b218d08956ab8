package logicstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkedInts(t *testing.T, terms []Term) []int {
	t.Helper()
	out := make([]int, len(terms))
	for i, term := range terms {
		a, ok := term.(*Atom)
		require.True(t, ok, "expected an atom, got %T", term)
		out[i] = a.Value.(int)
	}
	return out
}

func TestEqSingleResult(t *testing.T) {
	t.Run("eq(x, 42) yields exactly one result", func(t *testing.T) {
		results := Run(0, func(q *Var) Goal { return Eq(q, A(42)) })
		require.Len(t, results, 1)
		assert.Equal(t, 42, results[0].(*Atom).Value)
	})
}

func TestAndOrCartesianProduct(t *testing.T) {
	t.Run("and(or(x=1,x=2), or(y=a,y=b)) yields the 4-way cartesian product", func(t *testing.T) {
		results := Run(0, func(q *Var) Goal {
			x, y := Fresh("x"), Fresh("y")
			return And(
				Or(Eq(x, A(1)), Eq(x, A(2))),
				Or(Eq(y, A("a")), Eq(y, A("b"))),
				Eq(q, Seq(x, y)),
			)
		})
		require.Len(t, results, 4)

		seen := map[string]bool{}
		for _, r := range results {
			seq := r.(*Sequence)
			key := seq.Elems[0].String() + "/" + seq.Elems[1].String()
			seen[key] = true
		}
		assert.Len(t, seen, 4, "all four combinations must be distinct")
	})
}

func TestAndIdentityElement(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return And(Eq(q, A(1)))
	})
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].(*Atom).Value)

	empty := Run(0, func(q *Var) Goal {
		return And(And(), Eq(q, A(1)))
	})
	require.Len(t, empty, 1)
}

func TestOrIdentityElementAndCommutativity(t *testing.T) {
	a := Run(0, func(q *Var) Goal { return Or(Eq(q, A(1)), Eq(q, A(2))) })
	b := Run(0, func(q *Var) Goal { return Or(Eq(q, A(2)), Eq(q, A(1))) })
	assert.ElementsMatch(t, walkedInts(t, a), walkedInts(t, b), "Or is commutative up to interleaving order")

	empty := Run(0, func(q *Var) Goal { return Or(Failure) })
	assert.Empty(t, empty)
}

func TestConde(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Conde(
			[]Goal{Eq(q, A("first"))},
			[]Goal{Eq(q, A("second"))},
		)
	})
	require.Len(t, results, 2)
}

func TestNotSoundnessGuard(t *testing.T) {
	t.Run("not defeats a goal that introduces no new bindings", func(t *testing.T) {
		results := Run(0, func(q *Var) Goal {
			return And(Eq(q, A(1)), Not(Eq(q, A(1))))
		})
		assert.Empty(t, results)
	})

	t.Run("not passes through when the inner goal fails outright", func(t *testing.T) {
		results := Run(0, func(q *Var) Goal {
			return And(Eq(q, A(1)), Not(Eq(q, A(2))))
		})
		require.Len(t, results, 1)
		assert.Equal(t, 1, results[0].(*Atom).Value)
	})
}

func TestIfteCommitsToFirstBranch(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Ifte(
			Or(Eq(Fresh("dummy"), A(1)), Eq(Fresh("dummy2"), A(2))),
			Eq(q, A("then-branch")),
			Eq(q, A("else-branch")),
		)
	})
	require.Len(t, results, 2, "ifte pipes every condition result through then")
	for _, r := range results {
		assert.Equal(t, "then-branch", r.(*Atom).Value)
	}

	elseResults := Run(0, func(q *Var) Goal {
		return Ifte(Failure, Eq(q, A("then-branch")), Eq(q, A("else-branch")))
	})
	require.Len(t, elseResults, 1)
	assert.Equal(t, "else-branch", elseResults[0].(*Atom).Value)
}

func TestOnceTakesOnlyFirstResult(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Once(Or(Eq(q, A(1)), Eq(q, A(2)), Eq(q, A(3))))
	})
	require.Len(t, results, 1)
}

func TestTimeoutFailsSlowGoal(t *testing.T) {
	slow := NewGoal("slow", func(in Observable[*Subst]) Observable[*Subst] {
		return New(func(obs Observer[*Subst]) Teardown {
			timer := time.AfterFunc(50*time.Millisecond, func() {
				obs.Next(EmptySubst())
				obs.Complete()
			})
			return func() { timer.Stop() }
		})
	})
	_, err := RunWithContext(context.Background(), 0, func(q *Var) Goal {
		return Timeout(slow, 5*time.Millisecond)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLiftRequiresGroundInputs(t *testing.T) {
	addOne := Lift(func(args ...any) (any, error) {
		return args[0].(int) + 1, nil
	})
	results := Run(0, func(q *Var) Goal {
		return And(Eq(Fresh("x"), A(1)), addOne(A(1), q))
	})
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].(*Atom).Value)

	ungroundResults := Run(0, func(q *Var) Goal {
		return addOne(Fresh("unbound"), q)
	})
	assert.Empty(t, ungroundResults, "lift must not fire on an unground argument")
}

func TestRunWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunWithContext(ctx, 0, func(q *Var) Goal {
		return Eq(q, A(1))
	})
	assert.Error(t, err)
}

func TestRunRecoversPanicFromLiftedFunction(t *testing.T) {
	boom := Lift(func(args ...any) (any, error) {
		panic("host function exploded")
	})
	_, err := RunWithContext(context.Background(), 0, func(q *Var) Goal {
		return boom(A(1), q)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestFreshAllocatesDistinctVariablesPerArity(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		return Fresh2(func(a, b *Var) Goal {
			return And(Eq(a, A(1)), Eq(b, A(2)), Eq(q, Seq(a, b)))
		})
	})
	require.Len(t, results, 1)
	seq := results[0].(*Sequence)
	assert.Equal(t, 1, seq.Elems[0].(*Atom).Value)
	assert.Equal(t, 2, seq.Elems[1].(*Atom).Value)
}

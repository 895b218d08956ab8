package logicstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSuspendResolvesImmediatelyWhenAlreadyDecidable(t *testing.T) {
	s := EmptySubst()
	evalCalls := 0
	eval := func(s *Subst) (ConstraintResult, *Subst) {
		evalCalls++
		return Satisfied, s
	}
	out := AddSuspend(s, nil, 0, eval)
	require.NotEqual(t, failed, out)
	assert.Equal(t, 1, evalCalls)

	susps, _ := out.getSys(keySuspended).([]suspension)
	assert.Empty(t, susps, "a Satisfied eval must not leave a suspension behind")
}

func TestAddSuspendViolatedFailsImmediately(t *testing.T) {
	out := AddSuspend(EmptySubst(), nil, 0, func(s *Subst) (ConstraintResult, *Subst) {
		return Violated, s
	})
	assert.Equal(t, failed, out)
}

func TestAddSuspendParksPendingConstraint(t *testing.T) {
	v := Fresh("x")
	out := AddSuspend(EmptySubst(), []*Var{v}, 1, func(s *Subst) (ConstraintResult, *Subst) {
		return Pending, s
	})
	require.NotEqual(t, failed, out)
	susps, _ := out.getSys(keySuspended).([]suspension)
	require.Len(t, susps, 1)
}

func TestWakeUpSuspendsWakesOnGroundingViaUnify(t *testing.T) {
	v := Fresh("x")
	woke := false
	s := AddSuspend(EmptySubst(), []*Var{v}, 1, func(s *Subst) (ConstraintResult, *Subst) {
		if !Ground(v, s) {
			return Pending, s
		}
		woke = true
		return Satisfied, s
	})
	require.NotEqual(t, failed, s)
	assert.False(t, woke)

	// binding v anywhere in the system must trigger the wake-up fixpoint
	// through bindVar, without the caller invoking WakeUpSuspends directly.
	s2 := Unify(v, A(1), s)
	require.NotEqual(t, failed, s2)
	assert.True(t, woke)
}

func TestWakeUpSuspendsFixpointCascades(t *testing.T) {
	a, b, c := Fresh("a"), Fresh("b"), Fresh("c")
	s := EmptySubst()

	// c becomes ground only once b is ground, and b only once a is ground:
	// a single wake-up pass resolving a's suspension must cascade to wake b,
	// and waking b must cascade to wake c, all within one WakeUpSuspends call.
	s = AddSuspend(s, []*Var{a}, 1, func(s *Subst) (ConstraintResult, *Subst) {
		if !Ground(a, s) {
			return Pending, s
		}
		return Satisfied, s.Extend(b, A("b-ready"))
	})
	require.NotEqual(t, failed, s)

	s = AddSuspend(s, []*Var{b}, 1, func(s *Subst) (ConstraintResult, *Subst) {
		if !Ground(b, s) {
			return Pending, s
		}
		return Satisfied, s.Extend(c, A("c-ready"))
	})
	require.NotEqual(t, failed, s)

	s2 := Unify(a, A("a-ready"), s)
	require.NotEqual(t, failed, s2)
	assert.Equal(t, "c-ready", s2.Walk(c).(*Atom).Value)
}

func TestSuspendableGoalIntegratesWithEq(t *testing.T) {
	results := Run(0, func(q *Var) Goal {
		x := Fresh("x")
		waitForX := Suspendable([]*Var{x}, 1, func(s *Subst) (ConstraintResult, *Subst) {
			if !Ground(x, s) {
				return Pending, s
			}
			v := s.Walk(x).(*Atom).Value.(int)
			if v < 0 {
				return Violated, s
			}
			return Satisfied, s
		})
		return And(waitForX, Eq(x, A(5)), Eq(q, A("ok")))
	})
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].(*Atom).Value)
}

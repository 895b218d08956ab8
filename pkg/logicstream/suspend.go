package logicstream

import "sync/atomic"

var suspendIDCounter int64

// ConstraintResult is the three-way outcome an Evaluator reports: a
// constraint checked against a substitution either holds outright, fails
// outright, or cannot yet be decided because too few of its variables are
// ground.
type ConstraintResult int

const (
	// Satisfied means the constraint holds; the returned Subst (possibly
	// extended with new bindings the constraint computed) replaces the
	// input.
	Satisfied ConstraintResult = iota
	// Violated means the constraint can never hold against this
	// substitution; the whole branch fails.
	Violated
	// Pending means not enough of the constraint's variables are ground
	// yet to decide; it goes back to sleep until one of them changes.
	Pending
)

// Evaluator is a constraint's check function: given the current
// substitution, decide Satisfied/Violated/Pending. On Satisfied it may
// return an extended substitution (e.g. a numeric relation computing the one
// missing operand); on Violated or Pending the returned Subst is ignored.
type Evaluator func(s *Subst) (ConstraintResult, *Subst)

// suspension is one constraint waiting on some of its variables to become
// ground (spec §4.5).
type suspension struct {
	id          int64
	vars        []*Var
	minGrounded int
	eval        Evaluator
}

// AddSuspend registers a constraint against s. It is tried immediately: if
// eval already reports Satisfied or Violated against s as given, AddSuspend
// resolves it right away rather than deferring. Only a Pending result
// actually suspends, parking the constraint in s's system entries until
// WakeUpSuspends next finds enough of vars ground.
func AddSuspend(s *Subst, vars []*Var, minGrounded int, eval Evaluator) *Subst {
	res, next := eval(s)
	switch res {
	case Satisfied:
		return WakeUpSuspends(next)
	case Violated:
		return failed
	default:
		sp := suspension{
			id:          atomic.AddInt64(&suspendIDCounter, 1),
			vars:        vars,
			minGrounded: minGrounded,
			eval:        eval,
		}
		susps, _ := s.getSys(keySuspended).([]suspension)
		next := make([]suspension, len(susps), len(susps)+1)
		copy(next, susps)
		next = append(next, sp)
		return s.withSys(keySuspended, next)
	}
}

// WakeUpSuspends re-evaluates every suspension parked on s whose watched
// variables have enough ground members, repeating until a pass resolves
// nothing further (a fixpoint): waking one suspension may ground the
// variable another suspension is waiting on, so a single sweep is not
// always enough (spec §4.5 steps 1-4). It is called automatically from
// bindVar (unify.go) after every successful variable binding, so callers
// never need to invoke it by hand.
func WakeUpSuspends(s *Subst) *Subst {
	for {
		susps, _ := s.getSys(keySuspended).([]suspension)
		if len(susps) == 0 {
			return s
		}
		cur := s
		changed := false
		remaining := make([]suspension, 0, len(susps))
		for _, sp := range susps {
			if countGround(sp.vars, cur) < sp.minGrounded {
				remaining = append(remaining, sp)
				continue
			}
			res, next := sp.eval(cur)
			switch res {
			case Satisfied:
				cur = next
				changed = true
			case Violated:
				return failed
			default:
				remaining = append(remaining, sp)
			}
		}
		cur = cur.withSys(keySuspended, remaining)
		if !changed {
			return cur
		}
		s = cur
	}
}

func countGround(vars []*Var, s *Subst) int {
	n := 0
	for _, v := range vars {
		if Ground(v, s) {
			n++
		}
	}
	return n
}

// Suspendable builds a goal that, for every incoming substitution,
// registers eval as a constraint over vars (waking once minGrounded of them
// are ground) via AddSuspend. It is the building block the directional
// numeric relations (relations_numeric.go) are written in terms of.
func Suspendable(vars []*Var, minGrounded int, eval Evaluator) Goal {
	return NewGoal("suspend", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			r := AddSuspend(s, vars, minGrounded, eval)
			if r == failed {
				return Empty[*Subst]()
			}
			return Of(r)
		})
	})
}

package logicstream

import "sync"

// Succeedo is Success under the relation-style "o" naming the rest of this
// file follows.
var Succeedo = Success

// Failo is Failure under the relation-style "o" naming the rest of this
// file follows.
var Failo = Failure

// Neqo asserts a and b are not equal. It suspends until both sides are
// fully ground — unlike a reified disequality constraint, it does not try
// to detect a guaranteed mismatch from a partial binding early, since doing
// so soundly requires walking every possible unifier of the unbound parts.
func Neqo(a, b Term) Goal {
	vars := append(collectVars(a), collectVars(b)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		wa, wb := s.Walk(a), s.Walk(b)
		if !Ground(wa, s) || !Ground(wb, s) {
			return Pending, nil
		}
		if TermEqual(wa, wb) {
			return Violated, nil
		}
		return Satisfied, s
	})
	return NewGoal("neqo", g.fn)
}

// Onceo is Once with the relation-style "o" naming.
func Onceo(g Goal) Goal { return Once(g) }

// Groundo passes the substitution through unchanged if t is fully ground,
// otherwise fails.
func Groundo(t Term) Goal {
	return NewGoal("groundo", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			if !Ground(t, s) {
				return Empty[*Subst]()
			}
			return Of(s)
		})
	})
}

// NonGroundo passes the substitution through unchanged if t still contains
// an unbound variable, otherwise fails.
func NonGroundo(t Term) Goal {
	return NewGoal("nongroundo", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			if Ground(t, s) {
				return Empty[*Subst]()
			}
			return Of(s)
		})
	})
}

// Uniqueo drives g and keeps only the first result for each distinct
// walked value of t, dropping later results that repeat a value already
// seen. Per the decided open question, t is walked once, at the moment
// each substitution arrives — a later binding that would have changed t's
// rendering does not retroactively reconsider an already-accepted result.
func Uniqueo(t Term, g Goal) Goal {
	return NewGoal("uniqueo", func(in Observable[*Subst]) Observable[*Subst] {
		seen := map[string]bool{}
		var mu sync.Mutex
		return Filter(g.Apply(in), func(s *Subst) bool {
			key := s.Walk(t).String()
			mu.Lock()
			defer mu.Unlock()
			if seen[key] {
				return false
			}
			seen[key] = true
			return true
		})
	})
}

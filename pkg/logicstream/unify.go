package logicstream

// failed is the sentinel returned by Unify when two terms cannot be made
// equal. It is intentionally a typed nil-like value rather than an error:
// unification failure is expected and local (§7), not exceptional.
var failed *Subst = nil

// OccursCheck walks t against s and reports whether v appears anywhere in
// the result. It descends into Cons children, Sequence elements, and Record
// values — the open question in spec §9/§4.1 is resolved in favor of
// checking records too, since skipping them would let a record field bind
// back to an ancestor variable and build a cyclic structure silently.
func OccursCheck(v *Var, t Term, s *Subst) bool {
	walked := s.Walk(t)
	switch w := walked.(type) {
	case *Var:
		return w.id == v.id
	case *Cons:
		return OccursCheck(v, w.Head, s) || OccursCheck(v, w.Tail, s)
	case *Sequence:
		for _, e := range w.Elems {
			if OccursCheck(v, e, s) {
				return true
			}
		}
		return false
	case *Record:
		for _, e := range w.Fields {
			if OccursCheck(v, e, s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Unify attempts to make u and v equal by extending s, following the
// algorithm in spec §4.1 exactly:
//
//  1. a failed input substitution stays failed.
//  2. identical terms by Go identity succeed trivially.
//  3. both terms are walked.
//  4. identical walked terms succeed.
//  5. a walked variable is bound to the other side, subject to occurs-check.
//  6. two primitives of the same type succeed iff equal.
//  7. two Cons cells unify head then tail.
//  8. two Nils succeed.
//  9. two Sequences of equal length unify pointwise; unequal lengths fail.
//  10. two Records unify over the union of keys; a key missing on either
//      side fails (strict structural match).
//  11. anything else fails.
func Unify(u, v Term, s *Subst) *Subst {
	if s == failed {
		return failed
	}
	if u == v {
		return s
	}

	wu := s.Walk(u)
	wv := s.Walk(v)

	if termIdentical(wu, wv) {
		return s
	}

	if vv, ok := wu.(*Var); ok {
		return bindVar(vv, wv, s)
	}
	if vv, ok := wv.(*Var); ok {
		return bindVar(vv, wu, s)
	}

	switch a := wu.(type) {
	case *Atom:
		b, ok := wv.(*Atom)
		if !ok || a.Value != b.Value {
			return failed
		}
		return s

	case *Cons:
		b, ok := wv.(*Cons)
		if !ok {
			return failed
		}
		s2 := Unify(a.Head, b.Head, s)
		if s2 == failed {
			return failed
		}
		return Unify(a.Tail, b.Tail, s2)

	case nilList:
		if IsNil(wv) {
			return s
		}
		return failed

	case *Sequence:
		b, ok := wv.(*Sequence)
		if !ok || len(a.Elems) != len(b.Elems) {
			return failed
		}
		cur := s
		for i := range a.Elems {
			cur = Unify(a.Elems[i], b.Elems[i], cur)
			if cur == failed {
				return failed
			}
		}
		return cur

	case *Record:
		b, ok := wv.(*Record)
		if !ok {
			return failed
		}
		if len(a.Fields) != len(b.Fields) {
			return failed
		}
		cur := s
		for k, av := range a.Fields {
			bv, present := b.Fields[k]
			if !present {
				return failed
			}
			cur = Unify(av, bv, cur)
			if cur == failed {
				return failed
			}
		}
		for k := range b.Fields {
			if _, present := a.Fields[k]; !present {
				return failed
			}
		}
		return cur

	default:
		return failed
	}
}

func bindVar(v *Var, t Term, s *Subst) *Subst {
	if other, ok := t.(*Var); ok && other.id == v.id {
		return s
	}
	if OccursCheck(v, t, s) {
		return failed
	}
	return WakeUpSuspends(s.Extend(v, t))
}

// termIdentical compares two already-walked terms for the cheap equality
// check that lets Unify short-circuit without recursing (spec step 4).
func termIdentical(a, b Term) bool {
	switch av := a.(type) {
	case *Var:
		bv, ok := b.(*Var)
		return ok && av.id == bv.id
	case *Atom:
		bv, ok := b.(*Atom)
		return ok && av.Value == bv.Value
	case nilList:
		return IsNil(b)
	default:
		return false
	}
}

// TermEqual compares two already-walked terms structurally, recursing into
// Cons/Sequence/Record children. It is used where two terms must be
// compared for equality without going through a Subst (Not's soundness
// check operates on already-walked bindings).
func TermEqual(a, b Term) bool {
	if termIdentical(a, b) {
		return true
	}
	switch av := a.(type) {
	case *Cons:
		bv, ok := b.(*Cons)
		return ok && TermEqual(av.Head, bv.Head) && TermEqual(av.Tail, bv.Tail)
	case *Sequence:
		bv, ok := b.(*Sequence)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !TermEqual(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			bvv, present := bv.Fields[k]
			if !present || !TermEqual(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Ground reports whether t contains no unbound variables once walked
// against s.
func Ground(t Term, s *Subst) bool {
	switch w := s.Walk(t).(type) {
	case *Var:
		return false
	case *Cons:
		return Ground(w.Head, s) && Ground(w.Tail, s)
	case *Sequence:
		for _, e := range w.Elems {
			if !Ground(e, s) {
				return false
			}
		}
		return true
	case *Record:
		for _, e := range w.Fields {
			if !Ground(e, s) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

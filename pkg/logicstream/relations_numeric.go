package logicstream

// collectVars walks an unwalked term's static structure for *Var leaves. It
// is used to build a suspension's watch list before any unification has
// happened, so it looks at the term as written, not as it resolves against
// a particular Subst.
func collectVars(t Term) []*Var {
	switch v := t.(type) {
	case *Var:
		return []*Var{v}
	case *Cons:
		return append(collectVars(v.Head), collectVars(v.Tail)...)
	case *Sequence:
		var out []*Var
		for _, e := range v.Elems {
			out = append(out, collectVars(e)...)
		}
		return out
	case *Record:
		var out []*Var
		for _, e := range v.Fields {
			out = append(out, collectVars(e)...)
		}
		return out
	default:
		return nil
	}
}

func numAtom(t Term) (float64, bool) {
	a, ok := t.(*Atom)
	if !ok {
		return 0, false
	}
	switch n := a.Value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// numericCompare builds a suspended two-operand comparison. Constants mixed
// in with variables mean the exact count of ground operands needed can't be
// known up front, so the watch list's minGrounded is left at 0: every
// global wake-up re-tries the comparison, and the evaluator itself decides
// Pending vs Satisfied vs Violated once it walks its operands.
func numericCompare(name string, a, b Term, cmp func(x, y float64) bool) Goal {
	vars := append(collectVars(a), collectVars(b)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		if !oka || !okb {
			return Pending, nil
		}
		if cmp(fa, fb) {
			return Satisfied, s
		}
		return Violated, nil
	})
	return NewGoal(name, g.fn)
}

// Gto relates a and b such that a > b, once both are ground.
func Gto(a, b Term) Goal { return numericCompare("gto", a, b, func(x, y float64) bool { return x > y }) }

// Lto relates a and b such that a < b, once both are ground.
func Lto(a, b Term) Goal { return numericCompare("lto", a, b, func(x, y float64) bool { return x < y }) }

// Gteo relates a and b such that a >= b, once both are ground.
func Gteo(a, b Term) Goal {
	return numericCompare("gteo", a, b, func(x, y float64) bool { return x >= y })
}

// Lteo relates a and b such that a <= b, once both are ground.
func Lteo(a, b Term) Goal {
	return numericCompare("lteo", a, b, func(x, y float64) bool { return x <= y })
}

// Pluso relates a + b == c. Any one of the three may be unground as long as
// the other two are; the relation computes the missing operand. It
// suspends (spec §4.5) until that holds.
func Pluso(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		fc, okc := numAtom(s.Walk(c))
		switch {
		case oka && okb:
			return unifyResult(c, fa+fb, s)
		case oka && okc:
			return unifyResult(b, fc-fa, s)
		case okb && okc:
			return unifyResult(a, fc-fb, s)
		default:
			return Pending, nil
		}
	})
	return NewGoal("pluso", g.fn)
}

// Minuso relates a - b == c, solving for whichever operand is missing.
func Minuso(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		fc, okc := numAtom(s.Walk(c))
		switch {
		case oka && okb:
			return unifyResult(c, fa-fb, s)
		case oka && okc:
			return unifyResult(b, fa-fc, s)
		case okb && okc:
			return unifyResult(a, fc+fb, s)
		default:
			return Pending, nil
		}
	})
	return NewGoal("minuso", g.fn)
}

// Multo relates a * b == c, solving for whichever operand is missing. It
// cannot solve for a missing factor when the known factor is zero.
func Multo(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		fc, okc := numAtom(s.Walk(c))
		switch {
		case oka && okb:
			return unifyResult(c, fa*fb, s)
		case oka && okc && fa != 0:
			return unifyResult(b, fc/fa, s)
		case okb && okc && fb != 0:
			return unifyResult(a, fc/fb, s)
		default:
			return Pending, nil
		}
	})
	return NewGoal("multo", g.fn)
}

// Dividebyo relates a / b == c, solving for whichever operand is missing.
// It refuses to compute (stays Pending) when that would require dividing
// by zero.
func Dividebyo(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		fc, okc := numAtom(s.Walk(c))
		switch {
		case oka && okb && fb != 0:
			return unifyResult(c, fa/fb, s)
		case oka && okc && fc != 0:
			return unifyResult(b, fa/fc, s)
		case okb && okc:
			return unifyResult(a, fb*fc, s)
		default:
			return Pending, nil
		}
	})
	return NewGoal("dividebyo", g.fn)
}

// Maxo relates c to the larger of a and b, once both are ground.
func Maxo(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		if !oka || !okb {
			return Pending, nil
		}
		m := fa
		if fb > m {
			m = fb
		}
		return unifyResult(c, m, s)
	})
	return NewGoal("maxo", g.fn)
}

// Mino relates c to the smaller of a and b, once both are ground.
func Mino(a, b, c Term) Goal {
	vars := append(append(collectVars(a), collectVars(b)...), collectVars(c)...)
	g := Suspendable(vars, 0, func(s *Subst) (ConstraintResult, *Subst) {
		fa, oka := numAtom(s.Walk(a))
		fb, okb := numAtom(s.Walk(b))
		if !oka || !okb {
			return Pending, nil
		}
		m := fa
		if fb < m {
			m = fb
		}
		return unifyResult(c, m, s)
	})
	return NewGoal("mino", g.fn)
}

func unifyResult(target Term, value float64, s *Subst) (ConstraintResult, *Subst) {
	if cur, ok := numAtom(s.Walk(target)); ok {
		if cur == value {
			return Satisfied, s
		}
		return Violated, nil
	}
	r := Unify(target, A(value), s)
	if r == failed {
		return Violated, nil
	}
	return Satisfied, r
}

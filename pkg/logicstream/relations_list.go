package logicstream

// listElems walks a Cons/Nil chain into a Go slice. It fails (returns
// ok=false) if the spine is not fully closed — an unbound tail, or anything
// that isn't a Cons or Nil. Every list relation below that needs to know a
// list's shape up front (Permuteo, Lengtho, AllDistincto) is directional in
// this same sense: it can check and decompose a list, not generate one from
// an open tail.
func listElems(t Term, s *Subst) ([]Term, bool) {
	var out []Term
	cur := s.Walk(t)
	for {
		if IsNil(cur) {
			return out, true
		}
		cons, ok := cur.(*Cons)
		if !ok {
			return nil, false
		}
		out = append(out, cons.Head)
		cur = s.Walk(cons.Tail)
	}
}

// Membero relates x to each element of list, in order. It is directional:
// list's spine must already be closed enough to walk (a Cons chain ending
// in Nil, or at least as many Cons cells as are needed to find x), since
// generating an unbounded list of fresh elements is out of scope here.
func Membero(x, list Term) Goal {
	return NewGoal("membero", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] { return membero1(x, list, s) })
	})
}

func membero1(x, list Term, s *Subst) Observable[*Subst] {
	w := s.Walk(list)
	cons, ok := w.(*Cons)
	if !ok {
		return Empty[*Subst]()
	}
	var branches []Observable[*Subst]
	if r := Unify(x, cons.Head, s); r != failed {
		branches = append(branches, Of(r))
	}
	branches = append(branches, New(func(obs Observer[*Subst]) Teardown {
		return membero1(x, cons.Tail, s).Subscribe(obs).Unsubscribe
	}))
	return Merge(branches...)
}

// Firsto relates x to list's head: list must unify with a Cons whose head
// is x, leaving the tail free.
func Firsto(list, x Term) Goal {
	return Fresh1(func(t *Var) Goal { return Eq(list, &Cons{Head: x, Tail: t}) })
}

// Resto relates tail to everything after list's first element.
func Resto(list, tail Term) Goal {
	return Fresh1(func(h *Var) Goal { return Eq(list, &Cons{Head: h, Tail: tail}) })
}

// Appendo relates l3 to the concatenation of l1 and l2. l1 must be walkable
// to a closed or partially-closed spine; l2 and l3 may remain open.
func Appendo(l1, l2, l3 Term) Goal {
	return NewGoal("appendo", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] { return appendo1(l1, l2, l3, s) })
	})
}

func appendo1(l1, l2, l3 Term, s *Subst) Observable[*Subst] {
	w1 := s.Walk(l1)
	if IsNil(w1) {
		r := Unify(l2, l3, s)
		if r == failed {
			return Empty[*Subst]()
		}
		return Of(r)
	}
	cons, ok := w1.(*Cons)
	if !ok {
		return Empty[*Subst]()
	}
	t3 := Fresh("")
	r := Unify(l3, &Cons{Head: cons.Head, Tail: t3}, s)
	if r == failed {
		return Empty[*Subst]()
	}
	return New(func(obs Observer[*Subst]) Teardown {
		return appendo1(cons.Tail, l2, t3, r).Subscribe(obs).Unsubscribe
	})
}

// Lengtho relates n to the length of list. list must be a closed spine.
func Lengtho(list, n Term) Goal {
	return NewGoal("lengtho", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			elems, ok := listElems(list, s)
			if !ok {
				return Empty[*Subst]()
			}
			r := Unify(n, A(len(elems)), s)
			if r == failed {
				return Empty[*Subst]()
			}
			return Of(r)
		})
	})
}

// Permuteo relates perm to every ordering of list's elements. list must be
// a closed spine; the number of results is len(list)!, so callers should
// wrap this in Once or a Limit when list is not tiny.
func Permuteo(list, perm Term) Goal {
	return NewGoal("permuteo", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] { return permuteo1(list, perm, s) })
	})
}

func permuteo1(list, perm Term, s *Subst) Observable[*Subst] {
	w := s.Walk(list)
	if IsNil(w) {
		r := Unify(perm, Nil, s)
		if r == failed {
			return Empty[*Subst]()
		}
		return Of(r)
	}
	elems, ok := listElems(w, s)
	if !ok {
		return Empty[*Subst]()
	}
	var branches []Observable[*Subst]
	for i := range elems {
		rest := make([]Term, 0, len(elems)-1)
		rest = append(rest, elems[:i]...)
		rest = append(rest, elems[i+1:]...)
		tailVar := Fresh("")
		r := Unify(perm, &Cons{Head: elems[i], Tail: tailVar}, s)
		if r == failed {
			continue
		}
		restList := LogicList(rest...)
		branches = append(branches, New(func(obs Observer[*Subst]) Teardown {
			return permuteo1(restList, tailVar, r).Subscribe(obs).Unsubscribe
		}))
	}
	return Merge(branches...)
}

// Mapo relates outList to the result of applying the binary relation rel to
// every element of inList in lockstep: rel(in[i], out[i]) for every i.
// inList must be walkable to a closed or partially-closed spine.
func Mapo(rel func(in, out Term) Goal, inList, outList Term) Goal {
	return NewGoal("mapo", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] { return mapo1(rel, inList, outList, s) })
	})
}

func mapo1(rel func(in, out Term) Goal, inList, outList Term, s *Subst) Observable[*Subst] {
	w := s.Walk(inList)
	if IsNil(w) {
		r := Unify(outList, Nil, s)
		if r == failed {
			return Empty[*Subst]()
		}
		return Of(r)
	}
	cons, ok := w.(*Cons)
	if !ok {
		return Empty[*Subst]()
	}
	headOut := Fresh("")
	tailOut := Fresh("")
	r := Unify(outList, &Cons{Head: headOut, Tail: tailOut}, s)
	if r == failed {
		return Empty[*Subst]()
	}
	return FlatMap(rel(cons.Head, headOut).Apply(Of(r)), func(r2 *Subst) Observable[*Subst] {
		return mapo1(rel, cons.Tail, tailOut, r2)
	})
}

// RemoveFirsto relates result to list with one occurrence of x removed. If
// x occurs more than once, each occurrence's removal is a distinct
// solution — the relation does not commit to removing the leftmost one
// only.
func RemoveFirsto(x, list, result Term) Goal {
	return NewGoal("removefirsto", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] { return removeFirsto1(x, list, result, s) })
	})
}

func removeFirsto1(x, list, result Term, s *Subst) Observable[*Subst] {
	w := s.Walk(list)
	cons, ok := w.(*Cons)
	if !ok {
		return Empty[*Subst]()
	}
	var branches []Observable[*Subst]
	if r := Unify(x, cons.Head, s); r != failed {
		if r2 := Unify(result, cons.Tail, r); r2 != failed {
			branches = append(branches, Of(r2))
		}
	}
	tailResult := Fresh("")
	if r := Unify(result, &Cons{Head: cons.Head, Tail: tailResult}, s); r != failed {
		branches = append(branches, New(func(obs Observer[*Subst]) Teardown {
			return removeFirsto1(x, cons.Tail, tailResult, r).Subscribe(obs).Unsubscribe
		}))
	}
	return Merge(branches...)
}

// AllDistincto requires list to be a closed, fully ground spine of pairwise
// distinct elements. It emits the input substitution unchanged on success.
func AllDistincto(list Term) Goal {
	return NewGoal("alldistincto", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			elems, ok := listElems(list, s)
			if !ok {
				return Empty[*Subst]()
			}
			seen := make(map[string]bool, len(elems))
			for _, e := range elems {
				w := s.Walk(e)
				if !Ground(w, s) {
					return Empty[*Subst]()
				}
				key := w.String()
				if seen[key] {
					return Empty[*Subst]()
				}
				seen[key] = true
			}
			return Of(s)
		})
	})
}

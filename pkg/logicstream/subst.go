package logicstream

// Subst is an immutable mapping from variable id to Term, plus a handful of
// reserved system entries (see the sysKey type below) used by group
// enrichment (§4.4) and the suspension engine (§4.5). Extending a Subst
// never mutates the receiver; it returns a new value that shares the
// underlying map via copy-on-write, mirroring the teacher's
// Substitution.Bind/Clone pair in core.go.
type Subst struct {
	bindings map[int64]Term
	sys      map[sysKey]any
}

// sysKey enumerates the substitution's reserved, non-variable entries.
type sysKey int

const (
	keyGroupID sysKey = iota
	keyGroupPath
	keyGroupInnerGoals
	keyGroupOuterGoals
	keySuspended
)

// EmptySubst returns the substitution a query root starts with: no
// bindings, no group context, no suspensions.
func EmptySubst() *Subst {
	return &Subst{bindings: map[int64]Term{}, sys: map[sysKey]any{}}
}

// clone performs the copy-on-write step shared by every mutator below.
func (s *Subst) clone() *Subst {
	nb := make(map[int64]Term, len(s.bindings)+1)
	for k, v := range s.bindings {
		nb[k] = v
	}
	ns := make(map[sysKey]any, len(s.sys))
	for k, v := range s.sys {
		ns[k] = v
	}
	return &Subst{bindings: nb, sys: ns}
}

// Lookup returns the term bound to v, or nil if v is unbound.
func (s *Subst) Lookup(v *Var) Term {
	return s.bindings[v.id]
}

// Extend returns a new Subst with v bound to t. It does not check for
// occurs or re-binding; callers go through Unify for that.
func (s *Subst) Extend(v *Var, t Term) *Subst {
	ns := s.clone()
	ns.bindings[v.id] = t
	return ns
}

// Size returns the number of variable bindings (system entries excluded).
func (s *Subst) Size() int { return len(s.bindings) }

func (s *Subst) getSys(k sysKey) any { return s.sys[k] }

func (s *Subst) withSys(k sysKey, v any) *Subst {
	ns := s.clone()
	ns.sys[k] = v
	return ns
}

// Walk resolves t against s: an unbound variable is returned as-is, a bound
// variable is chased (iteratively, to avoid stack growth on long chains),
// and compound terms have every child walked recursively. Walk never copies
// a ground leaf — atoms, Nil, and unbound variables are returned unchanged.
func (s *Subst) Walk(t Term) Term {
	for {
		v, ok := t.(*Var)
		if !ok {
			break
		}
		bound := s.Lookup(v)
		if bound == nil {
			return v
		}
		t = bound
	}
	switch v := t.(type) {
	case *Cons:
		return &Cons{Head: s.Walk(v.Head), Tail: s.Walk(v.Tail)}
	case *Sequence:
		elems := make([]Term, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = s.Walk(e)
		}
		return &Sequence{Elems: elems}
	case *Record:
		fields := make(map[string]Term, len(v.Fields))
		for k, e := range v.Fields {
			fields[k] = s.Walk(e)
		}
		return &Record{Fields: fields}
	default:
		return t
	}
}

// DeepWalk is Walk followed by full structural resolution: every variable
// reachable from t, not just its top-level children, is resolved against s.
// Walk already recurses into Cons/Sequence/Record children, so DeepWalk is
// Walk; it is kept as a distinct name because callers (the query builder,
// aggregators) use it to state intent: "give me the final, presentable
// value", matching the teacher's Substitution.DeepWalk in highlevel_api.go.
func (s *Subst) DeepWalk(t Term) Term { return s.Walk(t) }

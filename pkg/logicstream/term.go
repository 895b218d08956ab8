// Package logicstream is an embeddable relational/logic query engine in the
// miniKanren tradition, built around a push-based substitution stream.
//
// A program is a composition of Goals driven over an Observable of
// substitutions. The term algebra, unifier, suspension engine, group
// enrichment, relations, and aggregation layer are all described in terms
// of that one stream abstraction.
package logicstream

import (
	"fmt"
	"sync/atomic"
)

// Term is any value in the logic universe: a variable, an atom, a sequence,
// a record, or a logic list cell (Cons/Nil). Implementations are immutable;
// extending a binding never mutates an existing Term.
type Term interface {
	// IsVar reports whether this term is an unresolved logic variable.
	IsVar() bool
	// String renders a debug representation; it does not walk bindings.
	String() string
}

var varCounter int64

// Var is an opaque logic variable identity. Two variables are equal iff
// their ids are equal. Ids are process-wide monotonic and never reused.
type Var struct {
	id   int64
	name string
}

// Fresh allocates a new logic variable. name is optional and used only for
// debug rendering; it has no bearing on identity.
func Fresh(name string) *Var {
	return &Var{id: atomic.AddInt64(&varCounter, 1), name: name}
}

// ID returns the variable's unique, process-wide identifier.
func (v *Var) ID() int64 { return v.id }

// Name returns the variable's optional debug name.
func (v *Var) Name() string { return v.name }

func (v *Var) IsVar() bool { return true }

func (v *Var) String() string {
	if v.name != "" {
		return fmt.Sprintf("_%s.%d", v.name, v.id)
	}
	return fmt.Sprintf("_.%d", v.id)
}

// Atom wraps a single primitive host value: number, string, bool, or nil.
// Atoms compare equal when their underlying values compare equal with ==;
// callers must not wrap incomparable values (slices, maps, funcs) in an Atom.
type Atom struct {
	Value any
}

// A is shorthand for constructing an Atom from a host value.
func A(value any) *Atom { return &Atom{Value: value} }

func (a *Atom) IsVar() bool { return false }

func (a *Atom) String() string {
	if a.Value == nil {
		return "nil"
	}
	return fmt.Sprintf("%v", a.Value)
}

// Sequence is a fixed-length, ordered tuple of terms. Length is part of its
// identity: two sequences of different length never unify.
type Sequence struct {
	Elems []Term
}

// Seq builds a Sequence from the given terms.
func Seq(elems ...Term) *Sequence { return &Sequence{Elems: elems} }

func (s *Sequence) IsVar() bool { return false }

func (s *Sequence) String() string {
	out := "["
	for i, e := range s.Elems {
		if i > 0 {
			out += ", "
		}
		out += e.String()
	}
	return out + "]"
}

// Record is an unordered, string-keyed mapping of terms. Unification between
// two records is strict and structural: every key present on either side
// must be present on the other (see Unify rule 10).
type Record struct {
	Fields map[string]Term
}

// Rec builds a Record from the given fields. The map is not copied; callers
// must not mutate it after passing it to Rec.
func Rec(fields map[string]Term) *Record { return &Record{Fields: fields} }

func (r *Record) IsVar() bool { return false }

func (r *Record) String() string {
	out := "{"
	first := true
	for k, v := range r.Fields {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s: %s", k, v.String())
	}
	return out + "}"
}

// Cons is a logic list cell distinct from Sequence: a Cons chain may end in
// an unbound Var rather than Nil, representing a list with an open tail.
type Cons struct {
	Head Term
	Tail Term
}

// NilList is the distinguished empty logic list. It is distinct from an
// empty Sequence.
type nilList struct{}

func (nilList) IsVar() bool    { return false }
func (nilList) String() string { return "()" }

// Nil is the singleton empty logic list.
var Nil Term = nilList{}

func (c *Cons) IsVar() bool { return false }

func (c *Cons) String() string {
	return fmt.Sprintf("(%s . %s)", c.Head.String(), c.Tail.String())
}

// LogicList builds a Cons/Nil chain from the given terms, terminated by Nil.
func LogicList(terms ...Term) Term {
	var out Term = Nil
	for i := len(terms) - 1; i >= 0; i-- {
		out = &Cons{Head: terms[i], Tail: out}
	}
	return out
}

// IsNil reports whether t is the empty logic list.
func IsNil(t Term) bool {
	_, ok := t.(nilList)
	return ok
}

// Rename returns a structural copy of t with every distinct variable
// replaced by a fresh one, consistently: two occurrences of the same
// variable in t map to the same fresh variable in the result. It operates
// on t's static shape, not against any Subst, matching the teacher's
// CopyTerm in term_utils.go — useful for instantiating a goal template with
// fresh variables before invoking it, e.g. from FreshN.
func Rename(t Term) Term {
	return renameTerm(t, map[int64]*Var{})
}

func renameTerm(t Term, mapping map[int64]*Var) Term {
	switch v := t.(type) {
	case *Var:
		if nv, ok := mapping[v.id]; ok {
			return nv
		}
		nv := Fresh(v.name)
		mapping[v.id] = nv
		return nv
	case *Cons:
		return &Cons{Head: renameTerm(v.Head, mapping), Tail: renameTerm(v.Tail, mapping)}
	case *Sequence:
		elems := make([]Term, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = renameTerm(e, mapping)
		}
		return &Sequence{Elems: elems}
	case *Record:
		fields := make(map[string]Term, len(v.Fields))
		for k, e := range v.Fields {
			fields[k] = renameTerm(e, mapping)
		}
		return &Record{Fields: fields}
	default:
		return t
	}
}

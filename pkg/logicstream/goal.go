package logicstream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var goalIDCounter int64

// Goal is a small handle around a stream transformer: Apply is the
// function from a stream of substitutions to a stream of substitutions
// (spec §4.3); ID and Name are out-of-band metadata a back-end can use to
// recognize this goal across invocations without reaching into closures
// captured on the substitution (design note §9). Because a Go Goal value
// carries no reference back to any Subst, it cannot form the ownership
// cycle the note warns about in garbage-collected closure languages, so —
// unlike the note's arena-of-handles suggestion — the function pointer is
// kept inline rather than indirected through a separate registry.
type Goal struct {
	id       int64
	name     string
	fn       func(Observable[*Subst]) Observable[*Subst]
	subgoals []Goal
}

// NewGoal wraps fn as a named Goal handle with a fresh process-wide id.
func NewGoal(name string, fn func(Observable[*Subst]) Observable[*Subst]) Goal {
	return Goal{id: atomic.AddInt64(&goalIDCounter, 1), name: name, fn: fn}
}

// Apply runs the goal over an input stream of substitutions.
func (g Goal) Apply(in Observable[*Subst]) Observable[*Subst] { return g.fn(in) }

// ID returns this goal invocation's unique identifier.
func (g Goal) ID() int64 { return g.id }

// Name returns the goal's optional debug/display name.
func (g Goal) Name() string { return g.name }

// Subgoals returns the immediate subgoals a grouping combinator (And, Or,
// Not, Ifte) declared this goal over, or nil for a leaf goal. group.go uses
// this to recursively flatten a group's subgoals into GROUP_OUTER_GOALS.
func (g Goal) Subgoals() []Goal { return g.subgoals }

// ErrTimeout is surfaced on a Timeout goal's output stream when the inner
// goal does not complete within the allotted duration.
var ErrTimeout = errors.New("logicstream: goal timed out")

// Success is a goal that passes every incoming substitution through
// unchanged. It is the identity element for And.
var Success = NewGoal("succeed", func(in Observable[*Subst]) Observable[*Subst] { return in })

// Failure is a goal that emits nothing for any incoming substitution. It is
// the identity element for Or.
var Failure = NewGoal("fail", func(in Observable[*Subst]) Observable[*Subst] {
	return FlatMap(in, func(*Subst) Observable[*Subst] { return Empty[*Subst]() })
})

// Eq unifies u and v against every incoming substitution, emitting the
// extended substitution on success and nothing on failure (spec §4.3).
func Eq(u, v Term) Goal {
	return NewGoal("eq", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			r := Unify(u, v, s)
			if r == failed {
				return Empty[*Subst]()
			}
			return Of(r)
		})
	})
}

// FreshN allocates n fresh variables per incoming substitution and drives
// f(vars) over a singleton stream seeded with that substitution, merging
// the results back onto the output (spec §4.3's "fresh(f)": arity is given
// explicitly here since Go cannot recover a closure's declared arity).
func FreshN(n int, f func(vars []*Var) Goal) Goal {
	return NewGoal("fresh", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			vars := make([]*Var, n)
			for i := range vars {
				vars[i] = Fresh("")
			}
			return f(vars).Apply(Of(s))
		})
	})
}

// Fresh1, Fresh2, and Fresh3 are ergonomic wrappers over FreshN for the
// common small arities; larger conjunctions should use FreshN directly.
func Fresh1(f func(a *Var) Goal) Goal {
	return FreshN(1, func(vs []*Var) Goal { return f(vs[0]) })
}

func Fresh2(f func(a, b *Var) Goal) Goal {
	return FreshN(2, func(vs []*Var) Goal { return f(vs[0], vs[1]) })
}

func Fresh3(f func(a, b, c *Var) Goal) Goal {
	return FreshN(3, func(vs []*Var) Goal { return f(vs[0], vs[1], vs[2]) })
}

// And composes goals left to right: g1 then g2 then ... then gk, each
// operating on the stream its predecessor produced. Empty And is Success;
// a single goal is returned unchanged. And wraps its subgoals in group
// enrichment (group.go) so back-ends can recognize this conjunction.
func And(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Success
	case 1:
		return goals[0]
	}
	base := NewGoal("and", func(in Observable[*Subst]) Observable[*Subst] {
		out := in
		for _, g := range goals {
			out = g.Apply(out)
		}
		return out
	})
	return enrichGroup(groupAnd, base, goals)
}

// Or fans the input stream out to every goal (via Share, so the upstream
// producer runs once regardless of branch count) and merges their outputs.
// Empty Or is Failure; a single goal is returned unchanged.
func Or(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Failure
	case 1:
		return goals[0]
	}
	base := NewGoal("or", func(in Observable[*Subst]) Observable[*Subst] {
		shared := Share(in)
		branches := make([]Observable[*Subst], len(goals))
		for i, g := range goals {
			branches[i] = g.Apply(shared)
		}
		return Merge(branches...)
	})
	return enrichGroup(groupOr, base, goals)
}

// Conde is sugar for Or(And(clause1...), And(clause2...), ...), following
// miniKanren's conde syntax for "cond"-style clause lists.
func Conde(clauses ...[]Goal) Goal {
	branches := make([]Goal, len(clauses))
	for i, c := range clauses {
		branches[i] = And(c...)
	}
	return Or(branches...)
}

// Not implements negation-as-failure with the soundness guard spec §4.3
// requires: g is driven on a singleton stream seeded with the incoming
// substitution. If any result is structurally identical to the input (no
// new bindings), g is considered to have proven it and Not emits nothing.
// If g produces no result at all, Not emits the original substitution
// unchanged. A result that introduces new bindings neither proves nor
// defeats the negation — Not must never itself bind a variable.
func Not(g Goal) Goal {
	base := NewGoal("not", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			results, err := ToSlice(g.Apply(Of(s)))
			if err != nil {
				return Fail[*Subst](err)
			}
			for _, r := range results {
				if substBindingsEqual(r, s) {
					return Empty[*Subst]()
				}
			}
			return Of(s)
		})
	})
	return enrichGroup(groupNot, base, []Goal{g})
}

// Ifte commits to the first batch of results g's condition produces: if
// cond yields one or more substitutions, all of them are piped through
// then; if it yields none, the original substitution is piped through els.
func Ifte(cond, then, els Goal) Goal {
	base := NewGoal("ifte", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			results, err := ToSlice(cond.Apply(Of(s)))
			if err != nil {
				return Fail[*Subst](err)
			}
			if len(results) > 0 {
				return then.Apply(Of(results...))
			}
			return els.Apply(Of(s))
		})
	})
	return enrichGroup(groupBranch, base, []Goal{cond, then, els})
}

// Once takes only the first substitution a goal produces, across its
// entire output stream, then unsubscribes upstream.
func Once(g Goal) Goal {
	return NewGoal("once", func(in Observable[*Subst]) Observable[*Subst] {
		return Take(g.Apply(in), 1)
	})
}

// Timeout mirrors g's output stream, failing it with ErrTimeout if g has
// not completed within d.
func Timeout(g Goal, d time.Duration) Goal {
	return NewGoal("timeout", func(in Observable[*Subst]) Observable[*Subst] {
		src := g.Apply(in)
		return New(func(obs Observer[*Subst]) Teardown {
			var once atomicOnce
			done := make(chan struct{})
			timer := time.NewTimer(d)
			var sub *Subscription
			finish := func(fn func()) {
				once.Do(func() {
					close(done)
					timer.Stop()
					fn()
				})
			}
			sub = src.Subscribe(Observer[*Subst]{
				Next: obs.Next,
				Error: func(err error) {
					finish(func() {
						if obs.Error != nil {
							obs.Error(err)
						}
					})
				},
				Complete: func() {
					finish(func() {
						if obs.Complete != nil {
							obs.Complete()
						}
					})
				},
			})
			go func() {
				select {
				case <-timer.C:
					finish(func() {
						if obs.Error != nil {
							obs.Error(ErrTimeout)
						}
					})
					sub.Unsubscribe()
				case <-done:
				}
			}()
			return func() {
				finish(func() {})
				sub.Unsubscribe()
			}
		})
	})
}

// Lift converts a pure host function into a goal of one more argument than
// fn takes: the last term passed to the returned goal-constructor is the
// output, unified with fn's result once every input argument is ground.
// If any input argument is not ground, the goal emits nothing — lifted
// functions have no generative inverse (spec §4.3).
func Lift(fn func(args ...any) (any, error)) func(terms ...Term) Goal {
	return func(terms ...Term) Goal {
		if len(terms) == 0 {
			return Failure
		}
		inputs := terms[:len(terms)-1]
		output := terms[len(terms)-1]
		return NewGoal("lift", func(in Observable[*Subst]) Observable[*Subst] {
			return FlatMap(in, func(s *Subst) Observable[*Subst] {
				args := make([]any, len(inputs))
				for i, t := range inputs {
					w := s.Walk(t)
					if !Ground(w, s) {
						return Empty[*Subst]()
					}
					args[i] = termToHost(w)
				}
				result, err := fn(args...)
				if err != nil {
					return Fail[*Subst](errors.Wrap(err, "logicstream: lifted function"))
				}
				r := Unify(output, hostToTerm(result), s)
				if r == failed {
					return Empty[*Subst]()
				}
				return Of(r)
			})
		})
	}
}

func termToHost(t Term) any {
	if a, ok := t.(*Atom); ok {
		return a.Value
	}
	return t
}

func hostToTerm(v any) Term {
	if t, ok := v.(Term); ok {
		return t
	}
	return A(v)
}

// substBindingsEqual reports whether a and b carry exactly the same
// variable bindings — used by Not to detect that a subgoal "proved" the
// input substitution without adding anything to it.
func substBindingsEqual(a, b *Subst) bool {
	if len(a.bindings) != len(b.bindings) {
		return false
	}
	for k, v := range a.bindings {
		bv, ok := b.bindings[k]
		if !ok || !TermEqual(v, bv) {
			return false
		}
	}
	return true
}

// Run executes goalFunc(q) over a fresh root stream and returns up to n
// walked values bound to q. n<=0 means "every solution" (see RunStar). A
// panic inside the goal tree (most commonly from a Lift'd host function) is
// recovered and logged rather than crashing the caller; it ends the run, and
// Run returns the results that arrived before it (RunWithContext also
// returns the panic as an error).
func Run(n int, goalFunc func(q *Var) Goal) []Term {
	terms, _ := RunWithContext(context.Background(), n, goalFunc)
	return terms
}

// RunStar is Run with no limit. It can fail to terminate if goalFunc has
// infinitely many solutions; prefer Timeout around the goal for untrusted
// input.
func RunStar(goalFunc func(q *Var) Goal) []Term {
	return Run(0, goalFunc)
}

// RunWithContext is Run with cancellation: if ctx is done before the query
// completes, evaluation is abandoned and ctx.Err() is returned alongside
// whatever results had already arrived.
func RunWithContext(ctx context.Context, n int, goalFunc func(q *Var) Goal) ([]Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := Fresh("q")
	var results []*Subst
	var runErr error

	panicErr := runRecovered(func() {
		g := goalFunc(q)
		out := g.Apply(Of(EmptySubst()))
		if n > 0 {
			out = Take(out, n)
		}
		done := make(chan struct{})
		var sub *Subscription
		sub = out.Subscribe(Observer[*Subst]{
			Next: func(s *Subst) { results = append(results, s) },
			Error: func(e error) {
				runErr = e
				close(done)
			},
			Complete: func() { close(done) },
		})
		select {
		case <-done:
		case <-ctx.Done():
			sub.Unsubscribe()
			runErr = ctx.Err()
		}
	})
	if panicErr != nil {
		runErr = panicErr
	}

	terms := make([]Term, len(results))
	for i, s := range results {
		terms[i] = s.DeepWalk(q)
	}
	return terms, runErr
}

// RunStarWithContext is RunWithContext with no limit.
func RunStarWithContext(ctx context.Context, goalFunc func(q *Var) Goal) ([]Term, error) {
	return RunWithContext(ctx, 0, goalFunc)
}

// runRecovered runs fn, converting any panic into an error instead of
// letting it unwind past the query boundary. Host exceptions raised from a
// Lift'd function or a misbehaving RelationFactory are the expected source.
func runRecovered(fn func()) (panicErr error) {
	defer func() {
		if r := recover(); r != nil {
			L().Error("recovered panic during query evaluation", "panic", r)
			panicErr = errors.Errorf("logicstream: panic during query evaluation: %v", r)
		}
	}()
	fn()
	return nil
}

// atomicOnce is a tiny sync.Once substitute that also reports whether this
// call was the one that fired, used by Timeout to race the timer against
// normal completion without leaking a goroutine either way.
type atomicOnce struct {
	done int32
}

func (o *atomicOnce) Do(fn func()) bool {
	if atomic.CompareAndSwapInt32(&o.done, 0, 1) {
		fn()
		return true
	}
	return false
}

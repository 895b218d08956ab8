package logicstream

import (
	"math"
	"sort"
)

// collectAndProcessBase is the template every per-substitution aggregator
// below shares: drive g to completion over a singleton stream seeded with
// the incoming substitution, hand every result to build, and unify
// whatever build computes into out against the original substitution (not
// any one of g's branch-specific results, so sibling variables bound
// outside the aggregated subgoal survive untouched).
func collectAndProcessBase(name string, g Goal, out Term, build func(origin *Subst, results []*Subst) (Term, error)) Goal {
	return NewGoal(name, func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			results, err := ToSlice(g.Apply(Of(s)))
			if err != nil {
				return Fail[*Subst](err)
			}
			val, err := build(s, results)
			if err != nil {
				return Fail[*Subst](err)
			}
			r := Unify(out, val, s)
			if r == failed {
				return Empty[*Subst]()
			}
			return Of(r)
		})
	})
}

// Collecto binds out to a logic list of t's walked value across every
// result g produces.
func Collecto(t Term, g Goal, out Term) Goal {
	return collectAndProcessBase("collecto", g, out, func(_ *Subst, results []*Subst) (Term, error) {
		vals := make([]Term, len(results))
		for i, r := range results {
			vals[i] = r.DeepWalk(t)
		}
		return LogicList(vals...), nil
	})
}

// CollectDistincto is Collecto with duplicate values (by rendered string)
// removed, keeping first-seen order.
func CollectDistincto(t Term, g Goal, out Term) Goal {
	return collectAndProcessBase("collectdistincto", g, out, func(_ *Subst, results []*Subst) (Term, error) {
		seen := make(map[string]bool, len(results))
		vals := make([]Term, 0, len(results))
		for _, r := range results {
			v := r.DeepWalk(t)
			key := v.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			vals = append(vals, v)
		}
		return LogicList(vals...), nil
	})
}

// Counto binds out to the number of results g produces.
func Counto(g Goal, out Term) Goal {
	return collectAndProcessBase("counto", g, out, func(_ *Subst, results []*Subst) (Term, error) {
		return A(len(results)), nil
	})
}

// GroupByCollecto partitions g's results by keyTerm's walked value and
// binds out to a logic list of {key: k, values: [...]} records, one per
// distinct key, in first-seen order.
func GroupByCollecto(keyTerm, valTerm Term, g Goal, out Term) Goal {
	return collectAndProcessBase("groupbycollecto", g, out, func(_ *Subst, results []*Subst) (Term, error) {
		var order []string
		groups := map[string][]Term{}
		keys := map[string]Term{}
		for _, r := range results {
			k := r.DeepWalk(keyTerm)
			ks := k.String()
			if _, ok := groups[ks]; !ok {
				order = append(order, ks)
				keys[ks] = k
			}
			groups[ks] = append(groups[ks], r.DeepWalk(valTerm))
		}
		rows := make([]Term, len(order))
		for i, ks := range order {
			rows[i] = Rec(map[string]Term{"key": keys[ks], "values": LogicList(groups[ks]...)})
		}
		return LogicList(rows...), nil
	})
}

// GroupByCounto partitions g's results by keyTerm's walked value and binds
// out to a logic list of {key: k, count: n} records.
func GroupByCounto(keyTerm Term, g Goal, out Term) Goal {
	return collectAndProcessBase("groupbycounto", g, out, func(_ *Subst, results []*Subst) (Term, error) {
		var order []string
		counts := map[string]int{}
		keys := map[string]Term{}
		for _, r := range results {
			k := r.DeepWalk(keyTerm)
			ks := k.String()
			if _, ok := counts[ks]; !ok {
				order = append(order, ks)
				keys[ks] = k
			}
			counts[ks]++
		}
		rows := make([]Term, len(order))
		for i, ks := range order {
			rows[i] = Rec(map[string]Term{"key": keys[ks], "count": A(counts[ks])})
		}
		return LogicList(rows...), nil
	})
}

// Existso drives g over a singleton stream seeded with the incoming
// substitution and re-emits that substitution unchanged iff g produces at
// least one result — semijoin/EXISTS semantics. Unlike Collecto and its
// relatives, it never threads g's internal bindings back onto the output.
func Existso(g Goal) Goal {
	return NewGoal("existso", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			results, err := ToSlice(g.Apply(Of(s)))
			if err != nil {
				return Fail[*Subst](err)
			}
			if len(results) == 0 {
				return Empty[*Subst]()
			}
			return Of(s)
		})
	})
}

// Subquery is the general aggregation bridge (spec §4.7): drive g over a
// singleton stream seeded with the incoming substitution, extract's walked
// value from each of g's results, hand the collected values to aggregator,
// and unify whatever it returns into bind against the original
// substitution. Collecto, Counto, and their relatives are all fixed
// instances of this same shape with aggregator hard-coded; Subquery exposes
// it for callers with their own reduction.
func Subquery(g Goal, extract Term, bind Term, aggregator func(values []Term) (Term, error)) Goal {
	return collectAndProcessBase("subquery", g, bind, func(_ *Subst, results []*Subst) (Term, error) {
		vals := make([]Term, len(results))
		for i, r := range results {
			vals[i] = r.DeepWalk(extract)
		}
		return aggregator(vals)
	})
}

// bufferThenEmit is the template every stream-level aggregator below
// shares: it buffers an entire input stream until it completes, hands the
// buffer to process, and emits whatever process returns. Unlike
// collectAndProcessBase, these operators work directly on the stream of
// substitutions flowing through a whole query rather than driving a nested
// subgoal per input item.
func bufferThenEmit(in Observable[*Subst], process func([]*Subst) ([]*Subst, error)) Observable[*Subst] {
	return New(func(obs Observer[*Subst]) Teardown {
		var buf []*Subst
		sub := in.Subscribe(Observer[*Subst]{
			Next: func(s *Subst) { buf = append(buf, s) },
			Error: func(err error) {
				if obs.Error != nil {
					obs.Error(err)
				}
			},
			Complete: func() {
				out, err := process(buf)
				if err != nil {
					if obs.Error != nil {
						obs.Error(err)
					}
					return
				}
				for _, s := range out {
					obs.Next(s)
				}
				if obs.Complete != nil {
					obs.Complete()
				}
			},
		})
		return sub.Unsubscribe
	})
}

// SortByStreamo reorders the entire result stream by t's walked value,
// using less as the ordering predicate. It necessarily buffers every
// result before emitting the first one.
func SortByStreamo(t Term, less func(a, b Term) bool) Goal {
	return NewGoal("sortbystreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return bufferThenEmit(in, func(buf []*Subst) ([]*Subst, error) {
			sorted := make([]*Subst, len(buf))
			copy(sorted, buf)
			sort.SliceStable(sorted, func(i, j int) bool {
				return less(sorted[i].DeepWalk(t), sorted[j].DeepWalk(t))
			})
			return sorted, nil
		})
	})
}

// TakeStreamo limits the whole result stream to its first n substitutions,
// under the relation-style "o" naming the rest of this file uses; it is
// Take at the Goal level.
func TakeStreamo(n int) Goal {
	return NewGoal("takestreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return Take(in, n)
	})
}

// MaxoStreamo buffers the entire result stream, walks x in every
// substitution, and re-emits only those substitutions whose walked x equals
// the maximum (spec §4.7). Substitutions whose x does not resolve to a
// number are dropped, as they cannot participate in the comparison.
func MaxoStreamo(x Term) Goal {
	return NewGoal("maxostreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return bufferThenEmit(in, func(buf []*Subst) ([]*Subst, error) {
			return extremumStreamo(buf, x, func(cur, best float64) bool { return cur > best })
		})
	})
}

// MinoStreamo is MaxoStreamo's counterpart: it re-emits only those
// substitutions whose walked x equals the minimum.
func MinoStreamo(x Term) Goal {
	return NewGoal("minostreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return bufferThenEmit(in, func(buf []*Subst) ([]*Subst, error) {
			return extremumStreamo(buf, x, func(cur, best float64) bool { return cur < best })
		})
	})
}

// extremumStreamo finds the extremum of x's walked value across buf — using
// better to decide whether a candidate improves on the running best — then
// re-emits every substitution whose walked x matches it.
func extremumStreamo(buf []*Subst, x Term, better func(cur, best float64) bool) ([]*Subst, error) {
	best := math.NaN()
	for _, s := range buf {
		v, ok := numAtom(s.DeepWalk(x))
		if !ok {
			continue
		}
		if math.IsNaN(best) || better(v, best) {
			best = v
		}
	}
	if math.IsNaN(best) {
		return nil, nil
	}
	var out []*Subst
	for _, s := range buf {
		v, ok := numAtom(s.DeepWalk(x))
		if ok && v == best {
			out = append(out, s)
		}
	}
	return out, nil
}

// GroupByCountStreamo partitions the whole result stream by keyTerm's
// walked value and re-emits one substitution per distinct key — the first
// substitution seen for that key, extended with out bound to the group's
// size.
func GroupByCountStreamo(keyTerm, out Term) Goal {
	return NewGoal("groupbycountstreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return bufferThenEmit(in, func(buf []*Subst) ([]*Subst, error) {
			var order []string
			counts := map[string]int{}
			bases := map[string]*Subst{}
			for _, s := range buf {
				ks := s.DeepWalk(keyTerm).String()
				if _, ok := counts[ks]; !ok {
					order = append(order, ks)
					bases[ks] = s
				}
				counts[ks]++
			}
			results := make([]*Subst, 0, len(order))
			for _, ks := range order {
				if r := Unify(out, A(counts[ks]), bases[ks]); r != failed {
					results = append(results, r)
				}
			}
			return results, nil
		})
	})
}

// GroupByCollectStreamo partitions the whole result stream by keyTerm's
// walked value and re-emits one substitution per distinct key — the first
// substitution seen for that key, extended with out bound to a logic list
// of valTerm's walked value across every member of the group.
func GroupByCollectStreamo(keyTerm, valTerm, out Term) Goal {
	return NewGoal("groupbycollectstreamo", func(in Observable[*Subst]) Observable[*Subst] {
		return bufferThenEmit(in, func(buf []*Subst) ([]*Subst, error) {
			var order []string
			vals := map[string][]Term{}
			bases := map[string]*Subst{}
			for _, s := range buf {
				ks := s.DeepWalk(keyTerm).String()
				if _, ok := vals[ks]; !ok {
					order = append(order, ks)
					bases[ks] = s
				}
				vals[ks] = append(vals[ks], s.DeepWalk(valTerm))
			}
			results := make([]*Subst, 0, len(order))
			for _, ks := range order {
				if r := Unify(out, LogicList(vals[ks]...), bases[ks]); r != failed {
					results = append(results, r)
				}
			}
			return results, nil
		})
	})
}

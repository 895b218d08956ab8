package logicstream

import "sync/atomic"

var groupIDCounter int64

// groupKind identifies which combinator produced a GroupFrame.
type groupKind int

const (
	groupAnd groupKind = iota
	groupOr
	groupNot
	groupBranch
)

func (k groupKind) String() string {
	switch k {
	case groupAnd:
		return "and"
	case groupOr:
		return "or"
	case groupNot:
		return "not"
	case groupBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// GroupFrame is one entry of a substitution's GROUP_PATH: the record that a
// conjunction, disjunction, negation, or branch combinator left behind to
// say "substitutions flowing through here were produced inside me" (spec
// §4.4). Frames are appended, never removed or rewritten, for the lifetime
// of a substitution — a back-end walking GROUP_PATH always sees the full
// nesting from query root to the substitution's point of origin.
type GroupFrame struct {
	Kind groupKind
	ID   int64
	Goal Goal
}

// enrichGroup wraps base so that every substitution entering it is tagged
// with a fresh GroupFrame (kind, a new group id, and the goal producing the
// frame) plus the group's declared inner goals, before base ever sees it.
// subgoals are recorded on the substitution so a relation back-end can
// inspect sibling goals within the same conjunction/disjunction — e.g. to
// batch several Membero calls against the same list into one query — without
// needing to capture them as closures on the substitution itself.
func enrichGroup(kind groupKind, base Goal, subgoals []Goal) Goal {
	wrapped := NewGoal(base.name, func(in Observable[*Subst]) Observable[*Subst] {
		tagged := Map(in, func(s *Subst) *Subst {
			return pushGroupFrame(s, kind, base, subgoals)
		})
		return base.Apply(tagged)
	})
	wrapped.subgoals = subgoals
	return wrapped
}

func pushGroupFrame(s *Subst, kind groupKind, g Goal, subgoals []Goal) *Subst {
	prevPath, _ := s.getSys(keyGroupPath).([]GroupFrame)
	prevOuter, _ := s.getSys(keyGroupOuterGoals).([]Goal)

	id := atomic.AddInt64(&groupIDCounter, 1)

	newPath := make([]GroupFrame, len(prevPath), len(prevPath)+1)
	copy(newPath, prevPath)
	newPath = append(newPath, GroupFrame{Kind: kind, ID: id, Goal: g})

	newOuter := dedupeGoalsByID(append(append([]Goal{}, prevOuter...), flattenInnerGoals(subgoals)...))

	newInner := make([]Goal, len(subgoals))
	copy(newInner, subgoals)

	ns := s.withSys(keyGroupID, id)
	ns = ns.withSys(keyGroupPath, newPath)
	ns = ns.withSys(keyGroupOuterGoals, newOuter)
	ns = ns.withSys(keyGroupInnerGoals, newInner)
	return ns
}

// flattenInnerGoals recursively expands every subgoal that is itself a
// group (And/Or/Not/Ifte) into its own declared subgoals, so
// GROUP_OUTER_GOALS reflects the full nesting a back-end would see by
// walking down from this group rather than just its immediate children.
// A subgoal with no declared subgoals of its own (a leaf relation) is kept
// as-is.
func flattenInnerGoals(goals []Goal) []Goal {
	var out []Goal
	for _, g := range goals {
		nested := g.Subgoals()
		if len(nested) == 0 {
			out = append(out, g)
			continue
		}
		out = append(out, flattenInnerGoals(nested)...)
	}
	return out
}

// dedupeGoalsByID removes repeated goals (by id) from goals, keeping the
// first occurrence's position.
func dedupeGoalsByID(goals []Goal) []Goal {
	seen := make(map[int64]bool, len(goals))
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if seen[g.ID()] {
			continue
		}
		seen[g.ID()] = true
		out = append(out, g)
	}
	return out
}

// GroupID returns the innermost enclosing group's id, if s carries one.
func GroupID(s *Subst) (int64, bool) {
	v, ok := s.getSys(keyGroupID).(int64)
	return v, ok
}

// GroupPath returns the full chain of group frames this substitution has
// passed through, from query root to innermost.
func GroupPath(s *Subst) []GroupFrame {
	p, _ := s.getSys(keyGroupPath).([]GroupFrame)
	return p
}

// GroupInnerGoals returns the immediate sibling goals of the innermost
// enclosing group (And, Or, Not, or Ifte).
func GroupInnerGoals(s *Subst) []Goal {
	g, _ := s.getSys(keyGroupInnerGoals).([]Goal)
	return g
}

// GroupOuterGoals returns the leaf goals of every group this substitution
// has entered, root group first and the innermost group's own subgoals
// included: each group adds its subgoals with nested groups flattened to
// their leaves (flattenInnerGoals), and repeats by id are dropped.
func GroupOuterGoals(s *Subst) []Goal {
	g, _ := s.getSys(keyGroupOuterGoals).([]Goal)
	return g
}

package logicstream

import "sync"

// VarProxy hands out logic variables by name, allocating each distinct
// name exactly once so that repeating a name in a query refers to the same
// variable. The reserved name "_" is the exception: every call allocates a
// fresh, never-reused variable, matching the conventional logic-language
// meaning of "don't care".
type VarProxy struct {
	mu   sync.Mutex
	vars map[string]*Var
}

// NewVarProxy returns an empty proxy.
func NewVarProxy() *VarProxy { return &VarProxy{vars: map[string]*Var{}} }

// Var returns the variable bound to name, allocating it on first use.
func (p *VarProxy) Var(name string) *Var {
	if name == "_" {
		return Fresh("_")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.vars[name]; ok {
		return v
	}
	v := Fresh(name)
	p.vars[name] = v
	return v
}

// Builder is the query surface: accumulate goals with Where, name the
// variables to project with Select, optionally cap result count with
// Limit, then run with ToSlice or Stream.
type Builder struct {
	proxy      *VarProxy
	goals      []Goal
	selectVars []*Var
	limit      int
}

// NewQuery starts an empty query builder.
func NewQuery() *Builder {
	return &Builder{proxy: NewVarProxy()}
}

// V resolves name to a query-scoped variable via the builder's VarProxy.
func (b *Builder) V(name string) *Var { return b.proxy.Var(name) }

// Where adds goals to the query's conjunction. Calling Where multiple times
// accumulates goals rather than replacing them.
func (b *Builder) Where(goals ...Goal) *Builder {
	b.goals = append(b.goals, goals...)
	return b
}

// Select names the variables to project into each result row. Calling
// Select again replaces the previous projection.
func (b *Builder) Select(vars ...*Var) *Builder {
	b.selectVars = vars
	return b
}

// Limit caps the number of result rows. n<=0 means unlimited.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

func (b *Builder) build() Goal { return And(b.goals...) }

// Stream runs the query and returns its results as a push-based stream of
// projected rows, keyed by variable name.
func (b *Builder) Stream() Observable[map[string]Term] {
	out := b.build().Apply(Of(EmptySubst()))
	if b.limit > 0 {
		out = Take(out, b.limit)
	}
	return Map(out, func(s *Subst) map[string]Term { return projectRow(s, b.selectVars) })
}

// ToSlice runs the query to completion and returns every result row.
func (b *Builder) ToSlice() ([]map[string]Term, error) {
	return ToSlice(b.Stream())
}

func projectRow(s *Subst, vars []*Var) map[string]Term {
	row := make(map[string]Term, len(vars))
	for _, v := range vars {
		row[v.Name()] = s.DeepWalk(v)
	}
	return row
}

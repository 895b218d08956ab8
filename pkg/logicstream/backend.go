package logicstream

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dlashua/logicstream/internal/parallel"
)

// RelOptions carries the arguments an external relation back-end needs
// beyond the query pattern itself: a correlation id a back-end can use to
// batch several goal invocations sharing one round trip (e.g. sibling
// Membero-style calls against the same group, surfaced via
// GroupInnerGoals in group.go) plus an optional result-count hint.
type RelOptions struct {
	BatchID uuid.UUID
	Limit   int
}

// RelationFactory is the contract an external relation back-end — a SQL
// table, a REST resource, a remote cache, all explicitly out of scope for
// this module (see SPEC_FULL.md §6) — implements to become queryable as a
// Goal. Rel returns a Goal that, for every incoming substitution, unifies
// pattern against whatever rows the back-end produces for identifier.
type RelationFactory interface {
	Rel(identifier string, pattern []Term, opts RelOptions) Goal
}

// RowCache is the back-channel a RelationFactory implementation can use to
// hand rows to sibling goals without forcing every invocation through a
// fresh round trip: a batched fetch keyed by BatchID populates the cache
// once, and every goal sharing that BatchID reads from it instead of
// re-querying.
type RowCache struct {
	mu   sync.Mutex
	rows map[uuid.UUID][][]Term
}

// NewRowCache returns an empty RowCache.
func NewRowCache() *RowCache { return &RowCache{rows: map[uuid.UUID][][]Term{}} }

// Put stores the rows fetched for a batch.
func (c *RowCache) Put(batch uuid.UUID, rows [][]Term) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[batch] = rows
}

// Get returns the rows stored for a batch, if any.
func (c *RowCache) Get(batch uuid.UUID) ([][]Term, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.rows[batch]
	return rows, ok
}

// Evict drops a batch's cached rows once every sibling goal has consumed
// them.
func (c *RowCache) Evict(batch uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, batch)
}

// FactTable is a reference RelationFactory: an in-memory, indexed table of
// ground fact rows. It exists to exercise and test the RelationFactory
// contract itself, not as a production storage back-end (SPEC_FULL.md §6
// Non-goals excludes concrete SQL/REST/cache back-ends).
type FactTable struct {
	mu      sync.RWMutex
	arity   int
	indexed map[int]bool
	rows    [][]Term
	index   map[int]map[string][]int
	cache   *RowCache
}

// NewFactTable creates an empty table of the given arity. indexedCols marks
// which 0-based columns get an equality index for O(1) lookup on a ground
// pattern term.
func NewFactTable(arity int, indexedCols ...int) *FactTable {
	idx := make(map[int]bool, len(indexedCols))
	index := make(map[int]map[string][]int, len(indexedCols))
	for _, c := range indexedCols {
		idx[c] = true
		index[c] = map[string][]int{}
	}
	return &FactTable{arity: arity, indexed: idx, index: index, cache: NewRowCache()}
}

// AddRow appends a fully ground row. It panics on an arity mismatch or a
// non-ground value: fact tables are built at setup time from trusted data,
// not from query-time input. The panic value wraps ErrArityMismatch or
// ErrNotGround so a caller that recovers the panic can match on the
// sentinel rather than parsing a message string.
func (t *FactTable) AddRow(row ...Term) {
	if len(row) != t.arity {
		panic(errors.Wrapf(ErrArityMismatch, "fact table arity %d, got %d", t.arity, len(row)))
	}
	for _, v := range row {
		if !Ground(v, EmptySubst()) {
			panic(errors.Wrap(ErrNotGround, "fact table row must be fully ground"))
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.rows)
	t.rows = append(t.rows, row)
	for col := range t.indexed {
		key := hashKey(row[col])
		t.index[col][key] = append(t.index[col][key], id)
	}
}

func hashKey(t Term) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", t)
	return fmt.Sprintf("%x", h.Sum64())
}

// Rel implements RelationFactory. The returned Goal narrows its row scan
// through an index whenever the pattern has a ground term in an indexed
// column, falling back to a full scan otherwise, then unifies pattern
// against each candidate row and emits whatever succeeds. When opts.BatchID
// is set, a batch's row scan is computed once and shared with every sibling
// goal requesting the same batch via the table's RowCache, populated by
// whichever goal consults it first; callers that know every sibling sharing
// a batch has run are responsible for calling Evict to release it.
func (t *FactTable) Rel(identifier string, pattern []Term, opts RelOptions) Goal {
	if len(pattern) != t.arity {
		return NewGoal("fact:"+identifier, func(in Observable[*Subst]) Observable[*Subst] {
			return Fail[*Subst](WrapBackendError(identifier, ErrArityMismatch))
		})
	}
	return NewGoal("fact:"+identifier, func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			rows := t.rowsFor(pattern, s, opts)
			var branches []Observable[*Subst]
			for _, row := range rows {
				cur := s
				ok := true
				for i, term := range pattern {
					cur = Unify(term, row[i], cur)
					if cur == failed {
						ok = false
						break
					}
				}
				if ok {
					branches = append(branches, Of(cur))
				}
			}
			return Merge(branches...)
		})
	})
}

// rowsFor consults the table's RowCache for opts.BatchID before falling
// back to a fresh scan, caching the result for sibling goals sharing the
// same batch.
func (t *FactTable) rowsFor(pattern []Term, s *Subst, opts RelOptions) [][]Term {
	if opts.BatchID == uuid.Nil {
		return t.candidateRows(pattern, s)
	}
	if cached, ok := t.cache.Get(opts.BatchID); ok {
		return cached
	}
	rows := t.candidateRows(pattern, s)
	t.cache.Put(opts.BatchID, rows)
	return rows
}

// Dispatcher fans fetches out across a fixed worker pool, for a
// RelationFactory implementation whose backing store benefits from
// running several sibling lookups concurrently — e.g. when a query group's
// inner goals (GroupInnerGoals, group.go) all target the same BatchID and
// can be issued together instead of one at a time.
type Dispatcher struct {
	pool *parallel.WorkerPool
}

// NewDispatcher starts a Dispatcher backed by workers goroutines (<=0
// defaults to the number of CPU cores).
func NewDispatcher(workers int) *Dispatcher {
	return &Dispatcher{pool: parallel.NewWorkerPool(workers)}
}

// Close shuts the dispatcher's worker pool down, waiting for in-flight
// fetches to finish.
func (d *Dispatcher) Close() { d.pool.Shutdown() }

// FetchAllParallel runs every fetch concurrently on the dispatcher's
// worker pool and returns once every submitted fetch has finished. A fetch
// that cannot be submitted (ctx done or pool shut down) records that error
// instead of running; ctx does not interrupt fetches already running, and
// one fetch's error does not stop the others. The returned error is the
// first non-nil one in fetches order. Results are returned in the same
// order as fetches regardless of completion order.
func (d *Dispatcher) FetchAllParallel(ctx context.Context, fetches []func() ([][]Term, error)) ([][][]Term, error) {
	results := make([][][]Term, len(fetches))
	errs := make([]error, len(fetches))
	var wg sync.WaitGroup
	for i, fetch := range fetches {
		i, fetch := i, fetch
		wg.Add(1)
		if err := d.pool.Submit(ctx, func() {
			defer wg.Done()
			rows, err := fetch()
			results[i] = rows
			errs[i] = err
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return results, e
		}
	}
	return results, nil
}

func (t *FactTable) candidateRows(pattern []Term, s *Subst) [][]Term {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for col, term := range pattern {
		if !t.indexed[col] {
			continue
		}
		w := s.Walk(term)
		if !Ground(w, s) {
			continue
		}
		ids := t.index[col][hashKey(w)]
		rows := make([][]Term, len(ids))
		for i, id := range ids {
			rows[i] = t.rows[id]
		}
		return rows
	}
	out := make([][]Term, len(t.rows))
	copy(out, t.rows)
	return out
}

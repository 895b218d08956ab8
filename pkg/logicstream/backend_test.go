package logicstream

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParentTable() *FactTable {
	t := NewFactTable(2, 0)
	t.AddRow(A("pam"), A("bob"))
	t.AddRow(A("tom"), A("bob"))
	t.AddRow(A("tom"), A("liz"))
	t.AddRow(A("bob"), A("ann"))
	t.AddRow(A("bob"), A("pat"))
	return t
}

func TestFactTableRelUnifiesMatchingRows(t *testing.T) {
	parent := newParentTable()
	results := Run(0, func(q *Var) Goal {
		return parent.Rel("parent", []Term{A("bob"), q}, RelOptions{})
	})
	assert.ElementsMatch(t, []string{"ann", "pat"}, stringValues(t, results))
}

func TestFactTableRelWithBothArgumentsFree(t *testing.T) {
	parent := newParentTable()
	results := Run(0, func(q *Var) Goal {
		a, b := Fresh("a"), Fresh("b")
		return And(parent.Rel("parent", []Term{a, b}, RelOptions{}), Eq(q, Seq(a, b)))
	})
	assert.Len(t, results, 5)
}

func TestFactTableRelArityMismatchFails(t *testing.T) {
	parent := newParentTable()
	results, err := RunWithContext(context.Background(), 0, func(q *Var) Goal {
		return parent.Rel("parent", []Term{q}, RelOptions{})
	})
	assert.Empty(t, results)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArityMismatch)
}

func TestFactTableAddRowPanicsOnArityMismatch(t *testing.T) {
	table := NewFactTable(2)
	assert.PanicsWithError(t, "fact table arity 2, got 1: "+ErrArityMismatch.Error(), func() { table.AddRow(A(1)) })
}

func TestFactTableAddRowPanicsOnNonGroundValue(t *testing.T) {
	table := NewFactTable(1)
	assert.PanicsWithError(t, "fact table row must be fully ground: "+ErrNotGround.Error(), func() { table.AddRow(Fresh("x")) })
}

func TestFactTableRelConsultsRowCacheAcrossSiblingGoals(t *testing.T) {
	parent := newParentTable()
	batch := uuid.New()
	results := Run(0, func(q *Var) Goal {
		return And(
			parent.Rel("parent", []Term{A("bob"), Fresh("discard")}, RelOptions{BatchID: batch}),
			parent.Rel("parent", []Term{A("bob"), q}, RelOptions{BatchID: batch}),
		)
	})
	assert.ElementsMatch(t, []string{"ann", "pat"}, stringValues(t, results))
	cached, ok := parent.cache.Get(batch)
	require.True(t, ok)
	assert.NotEmpty(t, cached)
}

func stringValues(t *testing.T, terms []Term) []string {
	t.Helper()
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term.(*Atom).Value.(string)
	}
	return out
}

func TestRowCachePutGetEvict(t *testing.T) {
	c := NewRowCache()
	batch := uuid.New()
	_, ok := c.Get(batch)
	assert.False(t, ok)

	c.Put(batch, [][]Term{{A(1)}})
	rows, ok := c.Get(batch)
	require.True(t, ok)
	assert.Len(t, rows, 1)

	c.Evict(batch)
	_, ok = c.Get(batch)
	assert.False(t, ok)
}

func TestDispatcherFetchAllParallelPreservesOrder(t *testing.T) {
	d := NewDispatcher(4)
	defer d.Close()

	fetches := make([]func() ([][]Term, error), 5)
	for i := 0; i < 5; i++ {
		i := i
		fetches[i] = func() ([][]Term, error) {
			return [][]Term{{A(i)}}, nil
		}
	}
	results, err := d.FetchAllParallel(context.Background(), fetches)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r[0][0].(*Atom).Value)
	}
}

func TestDispatcherFetchAllParallelSurfacesFirstError(t *testing.T) {
	d := NewDispatcher(2)
	defer d.Close()

	boom := assert.AnError
	fetches := []func() ([][]Term, error){
		func() ([][]Term, error) { return nil, boom },
		func() ([][]Term, error) { return [][]Term{{A(1)}}, nil },
	}
	_, err := d.FetchAllParallel(context.Background(), fetches)
	assert.Equal(t, boom, err)
}

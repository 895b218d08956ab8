package logicstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFieldValue(t *testing.T) {
	rec := Rec(map[string]Term{"name": A("bob"), "age": A(30)})
	results := Run(0, func(q *Var) Goal { return Extract(rec, "name", q) })
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].(*Atom).Value)
}

func TestExtractMissingFieldFails(t *testing.T) {
	rec := Rec(map[string]Term{"name": A("bob")})
	results := Run(0, func(q *Var) Goal { return Extract(rec, "missing", q) })
	assert.Empty(t, results)
}

func TestExtractEachPreservesOrder(t *testing.T) {
	seq := Seq(
		Rec(map[string]Term{"name": A("pam")}),
		Rec(map[string]Term{"name": A("bob")}),
	)
	results := Run(0, func(q *Var) Goal { return ExtractEach(seq, "name", q) })
	require.Len(t, results, 1)
	out := results[0].(*Sequence)
	require.Len(t, out.Elems, 2)
	assert.Equal(t, "pam", out.Elems[0].(*Atom).Value)
	assert.Equal(t, "bob", out.Elems[1].(*Atom).Value)
}

func TestExtractEachFailsIfAnyElementMissingField(t *testing.T) {
	seq := Seq(
		Rec(map[string]Term{"name": A("pam")}),
		Rec(map[string]Term{"other": A("bob")}),
	)
	results := Run(0, func(q *Var) Goal { return ExtractEach(seq, "name", q) })
	assert.Empty(t, results)
}

package logicstream

import "github.com/pkg/errors"

// Unification and constraint failure are not errors: they are silent
// dead ends in the search, represented by the nil-like failed sentinel
// (unify.go) and by a goal emitting nothing. The errors below are for the
// other kind of failure — something outside the logic itself went wrong —
// surfaced on an Observable's Error channel rather than by a branch simply
// producing no results.

// ErrArityMismatch is returned by a RelationFactory or query-builder
// helper when a pattern's length does not match a relation's declared
// arity.
var ErrArityMismatch = errors.New("logicstream: arity mismatch")

// ErrBackendUnavailable is returned when a RelationFactory cannot service
// a request — a closed connection, an exhausted retry budget, or similar.
var ErrBackendUnavailable = errors.New("logicstream: relation back-end unavailable")

// ErrNotGround is returned by helpers that require a fully ground term
// (for example building a Fact row) when given one that still contains a
// variable.
var ErrNotGround = errors.New("logicstream: term is not ground")

// WrapBackendError marks err as originating from a RelationFactory
// implementation, attaching the relation identifier for diagnostics.
func WrapBackendError(identifier string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "logicstream: relation %q", identifier)
}

package filter

import "github.com/rotisserie/eris"

var (
	// ErrInvalidArgument is returned when a filter is built without a source or
	// without a match function.
	ErrInvalidArgument = eris.New("invalid filter argument")

	// ErrStale is reported by Audit when the materialized view disagrees with
	// the source, typically because the predicate reads an undeclared attribute.
	ErrStale = eris.New("filter view is stale")
)

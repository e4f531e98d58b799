package filter

import "fmt"

// ParseError reports a malformed predicate. It is recoverable: callers
// surface it as data so the agent can retry with a corrected predicate.
type ParseError struct {
	Predicate string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter: invalid predicate %q: %s", e.Predicate, e.Reason)
}

// UnknownColumnError reports a predicate referencing a column that does
// not exist in the table. Unlike per-row type mismatches, this fails the
// whole operation.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("filter: unknown column %q", e.Column)
}

// Package matchedcols computes, for one row matched by a full-text search
// query, the deduplicated list of column indexes touched by any phrase of
// that query. The algorithm is engine-agnostic: it consumes a MatchContext
// supplied by an engine adapter (see the engine subpackages) or by a test
// fake, and never talks to a database itself.
package matchedcols

// MatchContext is a read-only view of one row's full-text match state. It is
// valid only for the duration of a single auxiliary function call: the
// reporter holds it for one computation and must not retain it.
type MatchContext interface {
	// ColumnCount returns the number of columns in the matched table.
	ColumnCount() int

	// PhraseCount returns the number of phrases in the current query.
	PhraseCount() int

	// PhraseColumns returns an iterator over the columns in which the given
	// phrase matched the current row. The iteration order is decided by the
	// engine adapter. Each returned iterator is finite and may be consumed
	// only once.
	PhraseColumns(phrase int) ColumnIter
}

// ColumnIter yields column indexes the way sql.Rows yields rows: Next
// advances and reports whether a column is available, Column returns the
// current index, and Err reports the first error hit during iteration.
// Exhaustion is Next returning false with a nil Err.
type ColumnIter interface {
	Next() bool
	Column() int
	Err() error
}

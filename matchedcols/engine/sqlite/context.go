package sqlite

import (
	"context"
	"fmt"

	"github.com/nonibytes/matchedcols"
	"github.com/nonibytes/matchedcols/query"
)

// rowContext implements matchedcols.MatchContext for one (query, rowid)
// pair. It carries the request context because the iteration protocol itself
// has no context parameter.
type rowContext struct {
	ctx     context.Context
	s       *Searcher
	phrases []query.Phrase
	rowid   int64
}

func (m *rowContext) ColumnCount() int { return len(m.s.columns) }

func (m *rowContext) PhraseCount() int { return len(m.phrases) }

func (m *rowContext) PhraseColumns(phrase int) matchedcols.ColumnIter {
	if phrase < 0 || phrase >= len(m.phrases) {
		return &columnIter{err: matchedcols.New(matchedcols.ErrContext, fmt.Sprintf("phrase index %d out of range", phrase))}
	}
	return &columnIter{m: m, phrase: m.phrases[phrase], col: -1}
}

// columnIter lazily probes columns in ascending index order, yielding those
// where the phrase matched the row.
type columnIter struct {
	m      *rowContext
	phrase query.Phrase
	next   int
	col    int
	err    error
}

func (it *columnIter) Next() bool {
	if it.err != nil {
		return false
	}
	for it.next < len(it.m.s.columns) {
		c := it.next
		it.next++
		name := it.m.s.columns[c]
		if !it.phrase.AppliesTo(name) {
			continue
		}
		ok, err := it.m.probe(name, it.phrase)
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			it.col = c
			return true
		}
	}
	return false
}

func (it *columnIter) Column() int { return it.col }

func (it *columnIter) Err() error { return it.err }

// probe asks the engine whether the phrase matches the row within a single
// column, using a column-filtered MATCH so tokenization stays engine-side.
// The filter expression travels as a bound parameter; only the table
// identifier is spliced into the SQL.
func (m *rowContext) probe(column string, p query.Phrase) (bool, error) {
	expr := fmt.Sprintf("%s : %s", column, p.Match())
	q := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s MATCH ? AND rowid = ?", quoteIdent(m.s.table), quoteIdent(m.s.table))
	var n int
	if err := m.s.db.QueryRowContext(m.ctx, q, expr, m.rowid).Scan(&n); err != nil {
		return false, matchedcols.Wrap(matchedcols.ErrEngine, fmt.Sprintf("probe column %s", column), err)
	}
	return n > 0, nil
}
